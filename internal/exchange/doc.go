// Package exchange is the entry point of the runtime. A Client owns two
// pools of execution contexts (REST and streaming), a callback pool, and the
// listen key manager, and exposes non-blocking REST and WebSocket calls whose
// results reach user handlers on the callback pool.
//
//	c := exchange.New(exchange.WithLogger(logger))
//	if err := c.Start(config.MakeTestNetConfig(key, secret), 4, 6); err != nil {
//		return err
//	}
//	defer c.Stop()
//
//	c.SendRestRequest(onTime, "/fapi/v1/time", api.Unsigned, nil)
//	c.StartWebSocket(onMark, "btcusdt@markPrice@1s")
package exchange
