// Package rfm derives Recency, Frequency and Monetary metrics per customer
// from the loaded store and assigns quartile scores.
//
// Aggregate reads per-customer activity through the Repository interface
// and computes metrics relative to a fixed reference date. Score ranks a
// population into quartiles exactly like SQL NTILE(4).
package rfm
