package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/leszmonitor/dashboard/internal/api"
	"github.com/leszmonitor/dashboard/internal/app"
	"github.com/leszmonitor/dashboard/internal/config"
	"github.com/leszmonitor/dashboard/internal/domain"
	"github.com/leszmonitor/dashboard/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("leszmon shell (%s)\n", cfg.APIBaseURL)
	fmt.Println(`Type "help" for commands.`)

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return
		}
		if err := run(ctx, a, fields[0], fields[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: login <username> <password>")
		}
		if err := a.Login(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", a.Session.Username())
		return nil

	case "register":
		if len(args) != 2 {
			return fmt.Errorf("usage: register <username> <password>")
		}
		if err := a.Register(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("registered and logged in as %s\n", a.Session.Username())
		return nil

	case "logout":
		if err := a.Logout(); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	case "open":
		if len(args) != 1 {
			return fmt.Errorf("usage: open <path>")
		}
		page, err := a.Nav.Navigate(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d)\n", page.Path, page.Status)
		if len(page.Body) > 0 {
			fmt.Println(strings.TrimSpace(string(page.Body)))
		}
		return nil

	case "whoami":
		if username := a.Session.Username(); username != "" {
			fmt.Println(username)
		} else {
			fmt.Println("not logged in")
		}
		return nil

	case "teams":
		teams, err := a.Workspaces(ctx)
		if err != nil {
			return err
		}
		if len(teams) == 0 {
			fmt.Println("no teams")
			return nil
		}
		for _, team := range teams {
			fmt.Printf("%s\t%s\n", team.DisplayID, team.Name)
		}
		return nil

	case "groups":
		return runGroups(ctx, a, args)

	case "members":
		return runMembers(ctx, a, args)

	case "help":
		printUsage()
		return nil

	default:
		return fmt.Errorf("unknown command %q (try \"help\")", command)
	}
}

func runGroups(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: groups add <team> <name> | groups rm <team> <groupId>")
	}
	switch args[0] {
	case "add":
		if len(args) < 3 {
			return fmt.Errorf("usage: groups add <team> <name> [description]")
		}
		input := domain.GroupInput{Name: args[2]}
		if len(args) > 3 {
			input.Description = strings.Join(args[3:], " ")
		}
		group, err := a.AddGroup(ctx, args[1], input)
		if err != nil {
			return err
		}
		fmt.Printf("created group %s (%s)\n", group.Name, group.ID)
		return nil
	case "rm":
		if len(args) != 3 {
			return fmt.Errorf("usage: groups rm <team> <groupId>")
		}
		if err := a.DeleteGroup(ctx, args[1], args[2]); err != nil {
			return err
		}
		fmt.Println("group deleted")
		return nil
	default:
		return fmt.Errorf("unknown groups subcommand %q", args[0])
	}
}

func runMembers(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: members add <team> <username> <role> | members rm <team> <username>")
	}
	switch args[0] {
	case "add":
		if len(args) != 4 {
			return fmt.Errorf("usage: members add <team> <username> <role>")
		}
		input := api.MemberInput{Username: args[2], Role: domain.TeamRole(args[3])}
		if err := a.AddMember(ctx, args[1], input); err != nil {
			return err
		}
		fmt.Printf("added %s as %s\n", args[2], args[3])
		return nil
	case "rm":
		if len(args) != 3 {
			return fmt.Errorf("usage: members rm <team> <username>")
		}
		if err := a.RemoveMember(ctx, args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", args[2])
		return nil
	default:
		return fmt.Errorf("unknown members subcommand %q", args[0])
	}
}

func printUsage() {
	fmt.Println(`COMMANDS:
  login <username> <password>       Log in and store the session token
  register <username> <password>    Create an account and log in
  logout                            Destroy the session
  open <path>                       Navigate, e.g. open /myteam/groups
  teams                             List available workspaces
  groups add <team> <name> [desc]   Create a group
  groups rm <team> <groupId>        Delete a group
  members add <team> <user> <role>  Add a team member (owner|admin|member|viewer)
  members rm <team> <user>          Remove a team member
  whoami                            Show the logged-in username
  quit                              Exit

ENVIRONMENT:
  LESZMON_API_URL   Backend API URL (default: http://localhost:8080)`)
}
