package stage

import (
	"os/exec"
	"sync"
)

var stdbufPath = sync.OnceValue(func() string {
	p, err := exec.LookPath("stdbuf")
	if err != nil {
		return ""
	}
	return p
})

// shellArgv returns the argv used to run command through sh. When stdbuf is
// available the child is forced into line-buffered stdout and stderr so the
// merged stream keeps the order in which lines were produced.
func shellArgv(command string, lineBuffered bool) []string {
	if lineBuffered {
		if p := stdbufPath(); p != "" {
			return []string{p, "-oL", "-eL", "sh", "-c", command}
		}
	}
	return []string{"sh", "-c", command}
}
