// Package govfs implements a virtual filesystem adapter. It lets application
// code address files and directories through abstract scheme://relative/path
// identifiers, while the actual bytes live under real filesystem roots chosen
// by a pluggable [Locator] policy. The package resolves identifiers to
// concrete paths, forwards every filesystem primitive to the operating
// system and keeps the locator's resolution cache consistent with any
// mutation it performs.
package govfs
