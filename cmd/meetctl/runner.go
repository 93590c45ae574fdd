package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/immxrtalbeast/axenix_meet/internal/api/http/converter"
	"github.com/immxrtalbeast/axenix_meet/internal/app"
	"github.com/immxrtalbeast/axenix_meet/internal/config"
	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/immxrtalbeast/axenix_meet/internal/service"
	"github.com/urfave/cli/v3"
)

// Runner holds the dependencies shared by the meetctl commands.
type Runner struct {
	meet    service.MeetInteractor
	storage *app.Storage
	logger  *log.Logger
	output  io.Writer
}

type RunnerOpts struct {
	Meet   service.MeetInteractor
	Logger *log.Logger
	Output io.Writer
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{
		meet:   opts.Meet,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "meetctl",
		Usage: "Inspect and manage meeting rooms",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config/local.yaml",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
		},
		Before:   r.open,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "code",
			Usage:  "Print a fresh room code",
			Action: r.Code,
		},
		{
			Name:  "create",
			Usage: "Create a room owned by the given participant",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Usage: "Creator name", Required: true},
				&cli.StringFlag{Name: "email", Usage: "Creator email", Required: true},
			},
			Action: r.Create,
		},
		{
			Name:      "check",
			Usage:     "Check that a room exists",
			ArgsUsage: "CODE",
			Action:    r.Check,
		},
		{
			Name:   "list",
			Usage:  "List live rooms",
			Action: r.List,
		},
		{
			Name:      "close",
			Usage:     "Delete a room, as its creator",
			ArgsUsage: "CODE",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "email", Usage: "Creator email", Required: true},
			},
			Action: r.CloseRoom,
		},
	}
}

// open builds the meeting service from the configured store unless one was
// injected.
func (r *Runner) open(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.meet != nil {
		return ctx, nil
	}

	cfg, err := config.LoadPath(cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	log := slog.New(r.logger)
	storage, err := app.OpenStorage(ctx, cfg.Storage, log)
	if err != nil {
		return ctx, fmt.Errorf("failed to open storage: %w", err)
	}
	r.storage = storage
	r.meet = service.NewMeetService(storage.Rooms, log, service.MeetOptions{
		RoomLifetime: cfg.Rooms.TTL,
		CodeAttempts: cfg.Rooms.CodeAttempts,
	})
	return ctx, nil
}

func (r *Runner) Close() {
	if r.storage == nil {
		return
	}
	if err := r.storage.Close(); err != nil {
		r.logger.Warn("failed to close storage", "err", err)
	}
}

func (r *Runner) Code(_ context.Context, _ *cli.Command) error {
	r.writeln(r.meet.NewCode())
	return nil
}

func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	identity := domain.NewParticipant(cmd.String("name"), cmd.String("email"))

	start, err := r.meet.StartMeeting(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	if start.NeedsIdentity {
		return service.ErrIdentityRequired
	}

	r.logger.Info("room created", "code", start.Room.Code)
	r.writeln("%s\t%s", start.Room.Code, converter.MeetingPath(start.Room.Code))
	return nil
}

func (r *Runner) Check(ctx context.Context, cmd *cli.Command) error {
	code := cmd.Args().First()
	if code == "" {
		return fmt.Errorf("room code is required")
	}

	room, err := r.meet.JoinMeeting(ctx, code)
	if err != nil {
		return err
	}

	r.writeln("%s exists, created by %s <%s> at %s",
		room.Code, room.CreatorName, room.CreatorEmail, room.CreatedAt.Format(time.RFC3339))
	return nil
}

func (r *Runner) List(ctx context.Context, _ *cli.Command) error {
	rooms, err := r.meet.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	w := tabwriter.NewWriter(r.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tCREATOR\tCREATED\tEXPIRES")
	for _, room := range rooms {
		expires := "never"
		if !room.ExpiresAt.IsZero() {
			expires = room.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", room.Code, room.CreatorEmail, room.CreatedAt.Format(time.RFC3339), expires)
	}
	return w.Flush()
}

func (r *Runner) CloseRoom(ctx context.Context, cmd *cli.Command) error {
	code := cmd.Args().First()
	if code == "" {
		return fmt.Errorf("room code is required")
	}

	if err := r.meet.CloseRoom(ctx, code, cmd.String("email")); err != nil {
		return err
	}
	r.writeln("%s closed", code)
	return nil
}

func (r *Runner) writeln(format string, args ...any) {
	fmt.Fprintf(r.output, format+"\n", args...)
}
