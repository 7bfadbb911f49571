//go:build mage

// Package main contains Mage build targets for the converter binaries.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir     = "bin"
	modulePath = "github.com/a3tai/mcp-pdf-converter"
)

// binaries maps each output name to its main package
var binaries = map[string]string{
	"mcp-pdf-converter": "./cmd/mcp-pdf-converter",
	"pdfconvert":        "./cmd/pdfconvert",
}

// Default target when mage runs without arguments
var Default = Build

func ldflags() string {
	version := os.Getenv("VERSION")
	if version == "" {
		if tag, err := sh.Output("git", "describe", "--tags", "--always", "--dirty"); err == nil {
			version = tag
		} else {
			version = "dev"
		}
	}
	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		commit = "unknown"
	}
	return strings.Join([]string{
		"-s -w",
		"-X main.version=" + version,
		"-X main.buildTime=" + time.Now().UTC().Format("2006-01-02_15:04:05"),
		"-X main.gitCommit=" + commit,
	}, " ")
}

func build(tags ...string) error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	flags := ldflags()
	for name, pkg := range binaries {
		out := filepath.Join(binDir, name)
		if runtime.GOOS == "windows" {
			out += ".exe"
		}
		args := []string{"build", "-ldflags", flags, "-o", out}
		if len(tags) > 0 {
			args = append(args, "-tags", strings.Join(tags, ","))
		}
		if err := sh.RunV("go", append(args, pkg)...); err != nil {
			return fmt.Errorf("go build %s: %w", pkg, err)
		}
		fmt.Printf("Built %s\n", out)
	}
	return nil
}

// Build compiles both binaries into bin/.
func Build() error {
	return build()
}

// BuildOCR compiles both binaries with Tesseract support (needs libtesseract).
func BuildOCR() error {
	return build("ocr")
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Cover writes coverage.out and prints the per-function summary.
func Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

// Lint runs go vet and golangci-lint when it is installed.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	if _, err := sh.Output("golangci-lint", "version"); err != nil {
		fmt.Println("golangci-lint not installed, skipping")
		return nil
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Check runs Lint and Test.
func Check() {
	mg.SerialDeps(Lint, Test)
}

// Install installs both binaries into GOBIN.
func Install() error {
	flags := ldflags()
	for _, pkg := range binaries {
		if err := sh.RunV("go", "install", "-ldflags", flags, pkg); err != nil {
			return err
		}
	}
	fmt.Printf("Installed %s binaries\n", modulePath)
	return nil
}

// Clean removes build output.
func Clean() error {
	for _, path := range []string{binDir, "coverage.out"} {
		if err := sh.Rm(path); err != nil {
			return err
		}
	}
	return nil
}
