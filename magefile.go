//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified.
var Default = Build

// Build compiles the ncmake binary into bin/.
func Build() error {
	mg.Deps(Vet)
	return sh.RunV("go", "build", "-o", "bin/ncmake", "./cmd/ncmake")
}

// Vet runs go vet on every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Install puts ncmake into GOBIN.
func Install() error {
	return sh.RunV("go", "install", "./cmd/ncmake")
}

// Clean removes build artifacts.
func Clean() error {
	return sh.Rm("bin")
}
