/*
Package shaping defines the surface shared by goshape's traffic-shaping
engines.

A shaper never drops a request. When a request cannot conform now, the
caller is delayed until it can, unless its context ends first:

	cfg, err := shaping.NewConfig(4, 2*time.Second) // 4 units per 2s
	if err != nil {
		return err
	}
	shaper, err := leakybucket.NewSafe(cfg)
	if err != nil {
		return err
	}
	if err := shaper.AcquireN(ctx, 2); err != nil {
		return err
	}

Weight rules are common to every engine. A weight of 0 is admitted without
touching state, a negative weight is a ValidationError, and a weight above
the capacity fails immediately with a CapacityError.

Do and Wrap acquire capacity before running a bounded operation. Admitted
capacity is consumed, so nothing is released when the operation returns.
*/
package shaping
