// Package token maintains the symbol-to-address mapping used to validate
// and resolve user-entered token symbols. The mapping is rebuilt wholesale
// from the aggregator's token list and swapped atomically, so reads are
// lock-free and a failed refresh never clears the registry.
package token
