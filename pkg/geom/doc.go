// Package geom holds the numeric tolerances and small geometric helpers
// shared by the brush mesh, the generators and the CSG tree. Vectors,
// matrices and boxes are the sdfx types so that meshes can be handed to
// the SDF evaluator without conversion.
package geom
