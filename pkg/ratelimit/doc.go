/*
Package ratelimit groups goshape's traffic-shaping engines.

Four engines share the shaping.Shaper interface and can be swapped freely:

  - leakybucket: level drains at a constant rate, starts empty
  - bucket: tokens accrue at a constant rate, starts full
  - gcra: the Generic Cell Rate Algorithm, as virtual scheduling or as a
    leaky bucket measured in time

The four make the same admission decisions for the same configuration and
request sequence, up to floating point rounding in the bucket engines.

New builds an engine by algorithm name:

	cfg, _ := shaping.NewConfig(10, time.Second)
	engine, err := ratelimit.New(shaping.AlgorithmGCRAVirtualScheduling, cfg)
	if err != nil {
		return err
	}
	if err := engine.AcquireN(ctx, 3); err != nil {
		return err
	}

Engines are safe for concurrent use but do not order concurrent callers.
The cooperative package adds a FIFO coordinator on top of any engine, and
the concurrency package bounds the number of operations in flight.
*/
package ratelimit
