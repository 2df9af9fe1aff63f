// Package file stores stevedore's settings in a TOML file, by default
// ~/.stevedore/config.toml. Keys are addressed in dotted form
// ("upload.batch_size") and nested into tables on save.
package file
