//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

const (
	shaderDir    = "testbed/shaders"
	shaderBinDir = "testbed/shaders/bin"
)

type Build mg.Namespace

// Compiles every GLSL stage under testbed/shaders into SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the vkcube binary into bin/.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vkcube", "."), withStream())
	return err
}

func buildShaders() error {
	if err := os.MkdirAll(shaderBinDir, 0o755); err != nil {
		return err
	}
	var sources []string
	for _, pattern := range []string{"*.vert", "*.frag"} {
		matches, err := filepath.Glob(filepath.Join(shaderDir, pattern))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no shader sources found in %s", shaderDir)
	}
	for _, src := range sources {
		dst := filepath.Join(shaderBinDir, filepath.Base(src)+".spv")
		stale, err := target.Path(dst, src)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		if _, err := executeCmd("glslc", withArgs(src, "-o", dst), withStream()); err != nil {
			return err
		}
	}
	return nil
}
