// Package scene defines the serializable scene document: a DAG of
// branches, brushes and passthrough groups with their shape definitions.
// A document is validated structurally, persisted as YAML and built into a
// csg.Tree whose brushes reference generated meshes.
package scene
