/*
Package gcra implements the Generic Cell Rate Algorithm in its two
equivalent formulations.

Both are derived from a shaping.Config: the emission interval T is
Period/Capacity and the delay variation tolerance τ is one full Period.
A request of weight n arriving at t conforms when the backlog it would
leave behind, including its own n×T, fits within τ.

Virtual scheduling keeps the theoretical arrival time:

	newTAT = max(TAT, t) + n×T
	conforms iff t ≥ newTAT − τ, otherwise wait newTAT − τ − t

The leaky bucket formulation keeps the same backlog as a draining level:

	drained = max(0, level − (t − last))
	conforms iff drained + n×T ≤ τ, otherwise wait drained + n×T − τ

All arithmetic is done in integer nanoseconds, so the two formulations make
identical decisions and ask for identical waits on every step. With
capacity 3 and period 1.5s, three back-to-back requests conform and a
fourth waits 500ms.
*/
package gcra
