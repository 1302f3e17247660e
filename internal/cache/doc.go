// Package cache keeps synthesized audio clips so a sentence heard in every
// round is only synthesized once. It has an in-memory LRU level (L1) and a
// zstd-compressed disk level (L2) that survives restarts.
package cache
