// Package reconcile folds a category's persisted activation record into the
// live registry.
//
// A pass reads the record, repairs it when it is not a mapping, drops pairs
// that cannot name a unit, restamps pairs whose timestamp does not parse,
// collapses keys to their canonical form (the first pair seen for a key
// wins), prunes keys the registry no longer resolves and writes the result
// back only when it differs from what was read. Every unit left in the
// record is initialized. A pass never fails: anything unexpected degrades the
// category to an empty result.
package reconcile
