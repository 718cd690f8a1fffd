// Package store defines the backing-store contract typed entries are built
// on, the closed set of primitive shapes a store holds, and an in-memory
// implementation.
//
// Responsibilities:
//   - Primitive is a sealed tagged union (Bool, Int, Float, Text, Data, List,
//     Map). Marshallers in the root prefs package switch over it exhaustively,
//     so a shape mismatch is an explicit branch rather than a failed cast.
//   - Store only gets, sets and removes a single primitive per key. It has no
//     transactions and no error surface; durable implementations under
//     pkg/store/... log failures and expose them through Healther.
//   - MemoryStore is the reference implementation used by tests and by
//     prefs.Standard().
//
// Durable backends:
//
//	pkg/store/file     JSON, YAML or TOML file rewritten on every mutation
//	pkg/store/sqlite   single-table SQLite database
//	pkg/store/dynamo   one DynamoDB item per key
//	pkg/store/layered  prioritized search list over other stores
package store
