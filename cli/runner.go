package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/goliatone/go-logger/glog"
	"github.com/jessevdk/go-flags"
	"github.com/viant/bearer"
	"github.com/viant/bearer/auth/session"
)

// Runner executes CLI commands against the configured API
type Runner struct {
	options *Options
	stdout  io.Writer
}

type loginCommand struct {
	runner   *Runner
	Email    string `short:"e" long:"email" description:"account email" required:"true"`
	Password string `short:"p" long:"password" description:"account password, read from BEARER_PASSWORD when empty"`
}

type registerCommand struct {
	runner   *Runner
	Email    string `short:"e" long:"email" description:"account email" required:"true"`
	Username string `short:"n" long:"username" description:"account username"`
	Password string `short:"p" long:"password" description:"account password, read from BEARER_PASSWORD when empty"`
}

type logoutCommand struct {
	runner *Runner
}

type whoamiCommand struct {
	runner *Runner
}

type deleteAccountCommand struct {
	runner *Runner
}

type getCommand struct {
	runner *Runner
	Args   struct {
		Path string `positional-arg-name:"path" description:"resource path relative to base url" required:"true"`
	} `positional-args:"true"`
}

func Run(args []string) error {
	return RunWithOutput(args, os.Stdout)
}

// RunWithOutput runs the CLI writing command output to stdout
func RunWithOutput(args []string, stdout io.Writer) error {
	runner := &Runner{options: &Options{}, stdout: stdout}
	parser := flags.NewParser(runner.options, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.AddCommand("login", "log in", "exchange email and password for credentials", &loginCommand{runner: runner}); err != nil {
		return err
	}
	if _, err := parser.AddCommand("logout", "log out", "revoke and remove stored credentials", &logoutCommand{runner: runner}); err != nil {
		return err
	}
	if _, err := parser.AddCommand("register", "create account", "register an account; log in afterwards", &registerCommand{runner: runner}); err != nil {
		return err
	}
	if _, err := parser.AddCommand("whoami", "show current user", "print the account of the stored credentials", &whoamiCommand{runner: runner}); err != nil {
		return err
	}
	if _, err := parser.AddCommand("delete-account", "delete account", "delete the account and remove stored credentials", &deleteAccountCommand{runner: runner}); err != nil {
		return err
	}
	if _, err := parser.AddCommand("get", "authenticated GET", "fetch a resource through the authenticated pipeline", &getCommand{runner: runner}); err != nil {
		return err
	}
	_, err := parser.ParseArgs(args)
	return err
}

func (r *Runner) client(ctx context.Context) (*bearer.Client, error) {
	config, err := r.options.config(ctx)
	if err != nil {
		return nil, err
	}
	var logger glog.Logger = glog.Nop()
	if r.options.Verbose {
		_, logger = glog.Resolve("bearer", nil, nil)
	}
	return bearer.New(ctx, config,
		bearer.WithLogger(logger),
		bearer.WithListener(session.ListenerFunc(func(ctx context.Context, cause error) {
			if !errors.Is(cause, session.ErrLoggedOut) && !errors.Is(cause, session.ErrAccountDeleted) {
				_, _ = fmt.Fprintln(r.stdout, "session expired, please log in again")
			}
		})))
}

func (c *loginCommand) Execute(_ []string) error {
	ctx := context.Background()
	client, err := c.runner.client(ctx)
	if err != nil {
		return err
	}
	if _, err = client.Session.Login(ctx, c.Email, password(c.Password)); err != nil {
		return serviceError(err)
	}
	_, err = fmt.Fprintln(c.runner.stdout, "logged in")
	return err
}

func (c *logoutCommand) Execute(_ []string) error {
	ctx := context.Background()
	client, err := c.runner.client(ctx)
	if err != nil {
		return err
	}
	if err = client.Session.Logout(ctx); err != nil {
		return serviceError(err)
	}
	_, err = fmt.Fprintln(c.runner.stdout, "logged out")
	return err
}

func (c *getCommand) Execute(_ []string) error {
	ctx := context.Background()
	client, err := c.runner.client(ctx)
	if err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.Endpoint(c.Args.Path), nil)
	if err != nil {
		return err
	}
	response, err := client.HTTP.Do(request)
	if err != nil {
		return serviceError(err)
	}
	defer response.Body.Close()
	if _, err = io.Copy(c.runner.stdout, response.Body); err != nil {
		return err
	}
	if response.StatusCode == http.StatusUnauthorized {
		return serviceError(session.ErrNotAuthenticated)
	}
	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%v responded %v", request.URL, response.Status)
	}
	return nil
}

func (c *registerCommand) Execute(_ []string) error {
	ctx := context.Background()
	client, err := c.runner.client(ctx)
	if err != nil {
		return err
	}
	if err = client.Session.Register(ctx, c.Email, c.Username, password(c.Password)); err != nil {
		return serviceError(err)
	}
	_, err = fmt.Fprintln(c.runner.stdout, "registered")
	return err
}

func (c *whoamiCommand) Execute(_ []string) error {
	ctx := context.Background()
	client, err := c.runner.client(ctx)
	if err != nil {
		return err
	}
	user, err := client.Session.CurrentUser(ctx)
	if err != nil {
		return serviceError(err)
	}
	_, err = fmt.Fprintf(c.runner.stdout, "%v <%v>\n", user.Username, user.Email)
	return err
}

func (c *deleteAccountCommand) Execute(_ []string) error {
	ctx := context.Background()
	client, err := c.runner.client(ctx)
	if err != nil {
		return err
	}
	if err = client.Session.DeleteAccount(ctx); err != nil {
		return serviceError(err)
	}
	_, err = fmt.Fprintln(c.runner.stdout, "account deleted")
	return err
}

func password(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("BEARER_PASSWORD")
}

// serviceError reports command failures as categorized service errors
func serviceError(err error) error {
	if err == nil {
		return nil
	}
	return session.ToServiceError(err)
}
