// Package writers turns registry contents into serialized outputs.
//
// Design:
//   • Writers own all presentation knowledge (summary tables, JSONL).
//   • The registry stays domain-only; the app stays orchestration-only.
//   • JSON/JSONL go through pkg/api (v1) for a stable wire format.
package writers
