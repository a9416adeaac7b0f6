package clangdex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ErrNoBuildCommand is returned by RunBuild for an empty command.
var ErrNoBuildCommand = errors.New("no build command")

// RunBuild drives p through Init, PreBuild and Build by running cmd in the
// tree's object folder under the merged environment. The emission folder is
// emptied first, so a build that emits nothing fails in PostBuild. The
// build's own failure is recorded on the pipeline and also returned.
func RunBuild(ctx context.Context, p *Pipeline, base Vars, cmd []string) error {
	if len(cmd) == 0 {
		return fmt.Errorf("clangdex: build: %w", ErrNoBuildCommand)
	}
	p.fresh = true
	env, err := p.Init(base)
	if err != nil {
		return err
	}
	if err := p.PreBuild(); err != nil {
		return err
	}
	if p.tree.ObjectFolder != "" {
		if err := os.MkdirAll(p.tree.ObjectFolder, 0o755); err != nil {
			_ = p.Build(BuildResult{Err: err})
			return fmt.Errorf("clangdex: build: create object folder: %w", err)
		}
	}

	c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	c.Dir = p.tree.ObjectFolder
	c.Env = env.Environ()
	c.Stdout = p.output
	c.Stderr = p.output
	p.logger.Info("pipeline.build.start", "cmd", cmd, "dir", c.Dir)

	runErr := c.Run()
	if err := p.Build(BuildResult{Err: runErr}); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("clangdex: build: %w", runErr)
	}
	return nil
}
