//go:build !production

package store

const assertionsEnabled = true
