package cli

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickgao/binance-beast/internal/api"
)

func newRestCmd(a *app) *cobra.Command {
	var (
		signed bool
		method string
	)

	cmd := &cobra.Command{
		Use:   "rest <path> [key=value...]",
		Short: "Send one REST request and print the response",
		Example: `  beast rest /fapi/v1/time
  beast rest /fapi/v1/depth symbol=BTCUSDT limit=5
  beast rest /fapi/v2/balance --signed`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			mode := api.Unsigned
			if signed {
				mode = api.HMACSHA256
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			client, err := a.startClient()
			if err != nil {
				return err
			}
			defer client.Stop()

			done := make(chan api.Result, 1)
			handler := func(r api.Result) { done <- r }
			if err := client.SendRestRequestMethod(handler, strings.ToUpper(method), args[0], mode, params); err != nil {
				return err
			}

			select {
			case r := <-done:
				return printResult(cmd.OutOrStdout(), r)
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	cmd.Flags().BoolVar(&signed, "signed", false, "add timestamp and HMAC-SHA256 signature")
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	return cmd
}
