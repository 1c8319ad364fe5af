/*
Package variant implements deterministic weighted assignment of identifiers to
experiment variants.

In general, variant assignment is all about mapping of an object from a very
big set of values (e.g. user id) to an object from a quite small set (e.g.
"control" or "treatment" of some A/B test). The word "deterministic" means
that it produces the same mapping on different machines or processes without
additional state exchange, storage or communication.

Assignment is done in three steps:

	identifier -> hash -> table index -> variant

First, identifier is hashed together with experiment seed by one of the
supported algorithms into a 32-bit value. Then that value is distributed over
a table of fixed size (either by plain modulus or by multiply-add-divide
scheme). Finally, the table is split into contiguous ranges whose sizes are
proportional to variant weights, and the range which holds the index names the
variant.

Each step is a pure function of its inputs. Assigner instances are immutable
after construction and thus may be shared between goroutines freely.

Note that changing seed, weights, table size, algorithm or distribution method
of an already running experiment reassigns identifiers. This is expected.
*/
package variant
