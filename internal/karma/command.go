package karma

import (
	"os"
	"path/filepath"
	"strings"

	"karmactl/internal/process"
)

const (
	// DefaultStartScript is the adapter script that boots Karma and prints
	// the start line.
	DefaultStartScript = "Start.js"

	nodeModulesDir = "node_modules"
)

// DefaultLibDirectory is the lib directory next to the running executable,
// where the adapter's start script is installed.
func DefaultLibDirectory() string {
	exe, err := os.Executable()
	if err != nil {
		return "lib"
	}
	return filepath.Join(filepath.Dir(exe), "lib")
}

// WorkingDirectory is the directory containing the Karma config file.
func (s *Server) WorkingDirectory() string {
	return filepath.Dir(s.configFile)
}

// StartScript is the absolute path of the adapter start script.
func (s *Server) StartScript() string {
	return filepath.Join(s.libDirectory, s.startScript)
}

// NodePath is the NODE_PATH handed to the child: every node_modules
// directory from the working directory up to the filesystem root.
func (s *Server) NodePath() string {
	return strings.Join(nodeModulePaths(s.WorkingDirectory()), string(os.PathListSeparator))
}

func nodeModulePaths(dir string) []string {
	var paths []string
	for dir != "" && isDir(dir) {
		candidate := filepath.Join(dir, nodeModulesDir)
		if isDir(candidate) {
			paths = append(paths, candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return paths
}

// processCommand resolves the node invocation for the current config.
func (s *Server) processCommand() (process.Command, error) {
	wd := s.WorkingDirectory()
	if !isDir(wd) {
		return process.Command{}, &ConfigurationError{Field: "workingDirectory", Path: wd, Reason: "could not find the working directory"}
	}

	script := s.StartScript()
	if !isFile(script) {
		return process.Command{}, &ConfigurationError{Field: "startScript", Path: script, Reason: "could not find the start script"}
	}

	args := make([]string, 0, len(s.node)+2)
	args = append(args, s.node[1:]...)
	args = append(args, script, "--karma", filepath.Base(s.configFile))

	return process.Command{
		Name: s.node[0],
		Args: args,
		Dir:  wd,
		Env:  map[string]string{"NODE_PATH": s.NodePath()},
	}, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
