// Package pools provides object pooling for reducing GC pressure.
//
// Personalized PageRank allocates a scratch vector per run; concurrent
// audits over the same graph reuse them through Float64Pool.
package pools
