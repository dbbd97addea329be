// Package buildsys runs the tasks declared in tasks.star. Task scripts are
// Starlark, the recipes themselves run through mvdan.cc/sh which means the
// same script works on Windows without a POSIX shell installed.
package buildsys
