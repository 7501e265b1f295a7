// Package types defines the shared data model of the retrieval engine:
// chunks, index records, retrieval results, and the engine error
// taxonomy.
//
// IndexRecord and the vector list it describes are maintained as
// parallel sequences; every completed index mutation preserves
// len(records) == vector count. Errors here are sentinels meant for
// errors.Is checks after wrapping with fmt.Errorf("%w: ...").
package types
