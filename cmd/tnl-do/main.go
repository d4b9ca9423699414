// Command tnl-do acquires a named lock (or one derived from the wrapped
// command line), runs a command while holding it, and exits with the
// wrapped command's exit status. Grounded on tcpnetlock/cli/tnl_do.py,
// including its retry/--retry-wait loop and lock-name-from-command
// derivation.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hgdeoro/tcpnetlock/internal/client"
	"github.com/hgdeoro/tcpnetlock/internal/config"
)

const (
	errInvalidOptions    = 2
	errLockNotGranted    = 123
	errExecutingCommand  = 124
	errConnectionRefused = 125
	errFileNotFound      = 127
)

var validLockNameChars = regexp.MustCompile(`[a-zA-Z0-9_-]`)

// deriveLockName builds a lock name from the wrapped command the same way
// tnl_do.py does: join with spaces, fold space/dot/slash to underscore,
// trim surrounding underscores, then keep only the allowed character
// class (silently dropping anything else, rather than rejecting it).
func deriveLockName(command []string) string {
	joined := strings.Join(command, " ")
	replacer := strings.NewReplacer(" ", "_", ".", "_", "/", "_")
	folded := replacer.Replace(joined)
	folded = strings.Trim(folded, "_")
	return strings.Join(validLockNameChars.FindAllString(folded, -1), "")
}

func main() {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errInvalidOptions)
	}

	lockName := flag.String("lock-name", "", "name of the lock to acquire (derived from the command if omitted)")
	host := flag.String("host", cfg.Host, "server host")
	port := flag.Int("port", cfg.Port, "server port")
	clientID := flag.String("client-id", cfg.ClientID, "client id to report to the server")
	retry := flag.Int("retry", 0, "how many times to retry acquiring the lock")
	retryWait := flag.Int("retry-wait", 10, "seconds to wait between retries")
	keepAlive := flag.Bool("keep-alive", false, "send periodic keepalives while the command runs")
	keepAliveSecs := flag.Int("keep-alive-secs", 15, "seconds between keepalives")
	shell := flag.Bool("shell", false, "invoke the command through a shell (use for piping/redirecting)")
	flag.Parse()

	command := flag.Args()
	if len(command) == 0 {
		fmt.Fprintln(os.Stderr, "usage: tnl-do [flags] -- <command> [args...]")
		os.Exit(errInvalidOptions)
	}
	if *shell && len(command) != 1 {
		fmt.Fprintln(os.Stderr, "when invoking with --shell, provide a single command (wrap it in quotes)")
		os.Exit(errInvalidOptions)
	}

	name := *lockName
	if name == "" {
		name = deriveLockName(command)
		if name == "" {
			fmt.Fprintln(os.Stderr, "couldn't derive a lock name from the command; specify --lock-name")
			os.Exit(errInvalidOptions)
		}
	}

	// When neither --client-id nor TCPNETLOCK_CLIENT_ID was given, tag this
	// holder with a generated id rather than reporting an empty one, so
	// `.stats`/log output can still tell concurrent wrapped commands apart.
	id := *clientID
	if id == "" {
		id = uuid.NewString()
	}

	var c *client.Client
	for attempt := 0; ; attempt++ {
		c, err = client.New(*host, *port, id)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(errInvalidOptions)
		}
		if err := c.Connect(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(errConnectionRefused)
		}

		granted, err := c.Lock(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(errConnectionRefused)
		}
		if granted {
			break
		}

		c.Close()
		if attempt >= *retry {
			fmt.Fprintf(os.Stderr, "ERROR: lock %q not granted. Exiting...\n", name)
			os.Exit(errLockNotGranted)
		}
		time.Sleep(time.Duration(*retryWait) * time.Second)
	}
	defer c.Close()

	var stopKeepalive chan struct{}
	var keepaliveDone chan struct{}
	if *keepAlive {
		stopKeepalive = make(chan struct{})
		keepaliveDone = make(chan struct{})
		go func() {
			defer close(keepaliveDone)
			c.KeepaliveLoop(time.Duration(*keepAliveSecs)*time.Second, stopKeepalive)
		}()
	}

	exitCode, err := runCommand(command, *shell)

	if stopKeepalive != nil {
		close(stopKeepalive)
		<-keepaliveDone
	}
	// Release after the keepalive loop is stopped: otherwise both could be
	// concurrently reading/writing the same socket.
	c.Release()

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "ERROR: command not found: %q\n", command[0])
			os.Exit(errFileNotFound)
		}
		os.Exit(errExecutingCommand)
	}
	os.Exit(exitCode)
}

func runCommand(command []string, useShell bool) (int, error) {
	var cmd *exec.Cmd
	if useShell {
		cmd = exec.Command("sh", "-c", command[0])
	} else {
		cmd = exec.Command(command[0], command[1:]...)
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}
