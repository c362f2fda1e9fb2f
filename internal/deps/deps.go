package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Status represents the installation status of a dependency
type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string
}

const checkTimeout = 30 * time.Second

// CheckFFmpeg checks if the ffmpeg binary is installed and returns its status
func CheckFFmpeg(binary string) Status {
	if binary == "" {
		binary = "ffmpeg"
	}
	// ffmpeg -version outputs version info on first line
	return check("ffmpeg", binary, "-version")
}

// CheckPython checks the interpreter used for the model workers
func CheckPython(binary string) Status {
	if binary == "" {
		binary = "python3"
	}
	return check("python", binary, "--version")
}

// CheckPythonModule reports whether python can import module, using the
// module's __version__ when it has one.
func CheckPythonModule(python, module string) Status {
	status := Status{Name: module}
	path, err := exec.LookPath(python)
	if err != nil {
		return status
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	script := "import " + module + "; print(getattr(" + module + ", '__version__', ''))"
	output, err := exec.CommandContext(ctx, path, "-c", script).Output()
	if err != nil {
		return status
	}

	status.Installed = true
	status.Path = path
	status.Version = firstLine(output)
	return status
}

func check(name, binary, versionArg string) Status {
	path, err := exec.LookPath(binary)
	if err != nil {
		return Status{Name: name, Installed: false}
	}

	status := Status{
		Name:      name,
		Installed: true,
		Path:      path,
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	// python 2 printed its version on stderr
	output, err := exec.CommandContext(ctx, path, versionArg).CombinedOutput()
	if err == nil {
		status.Version = firstLine(output)
	}

	return status
}

func firstLine(output []byte) string {
	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line)
}
