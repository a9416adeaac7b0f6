package main

import (
	"github.com/jward/clangdex"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env [source]",
	Short: "Print the environment overrides that instrument a build",
	Long: "Prints CC, CXX and the DXR_* variables an external build needs so clang loads the index plugin. " +
		"Creates the emission folder. Run 'clangdex index' afterwards without a build command.",
	Args: cobra.MaximumNArgs(1),
	RunE: runEnv,
}

func init() {
	addTreeFlags(envCmd)
}

func runEnv(cmd *cobra.Command, args []string) error {
	var source string
	if len(args) == 1 {
		source = args[0]
	}
	repoRoot, err := cwdRepoRoot()
	if err != nil {
		return outputError("env", err)
	}
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return outputError("env", err)
	}
	applyFlags(cfg, source)
	tree, err := treeFromConfig(cfg, repoRoot)
	if err != nil {
		return outputError("env", err)
	}
	popts, err := pipelineOptions(cfg)
	if err != nil {
		return outputError("env", err)
	}

	p := clangdex.NewPipeline(tree, popts...)
	if _, err := p.Init(nil); err != nil {
		return outputError("env", err)
	}
	return outputResult(CLIResult{Command: "env", Results: CLIEnv(p.Overrides())})
}
