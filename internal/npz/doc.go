// Package npz reads and writes the compressed NumPy archives the depth
// backend exchanges with the pipeline. Reading goes through npyio; writing
// emits the minimal v1.0 NPY header directly because npyio only serializes
// one- and two-dimensional values and depth volumes are three-dimensional.
package npz
