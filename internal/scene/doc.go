// Package scene produces the depth unit matching one RGB scene unit. Every
// scene ends with a depth video conformed to its RGB twin's exact geometry,
// frame rate, and frame count; when inference is impossible or fails, a flat
// placeholder unit stands in so the pipeline never stalls on a single scene.
package scene
