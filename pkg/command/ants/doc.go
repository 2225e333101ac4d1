// Package ants describes the ANTS binaries used to build population templates: registration,
// warping, image and transform averaging, and image multiplication.
package ants
