package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/springborland/egeria/adminclient"
	"github.com/springborland/egeria/archive"
	"github.com/springborland/egeria/config"
	"github.com/springborland/egeria/journal"
	"github.com/springborland/egeria/orchestrator"
	"github.com/springborland/egeria/shared/logger"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	serverName string
	userID     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "serverauthorctl",
		Short:         "OMAG server configuration CLI",
		Long:          `serverauthorctl configures OMAG servers through the admin services of the platforms that host them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", config.ConfigFile(), "Path of the view service configuration")
	rootCmd.PersistentFlags().StringVarP(&opts.serverName, "server", "s", "", "Name of the OMAG server to configure")
	rootCmd.PersistentFlags().StringVarP(&opts.userID, "user", "u", "", "Acting user (default: view_service.local_server_user_id)")

	rootCmd.AddCommand(endpointsCmd(opts))
	rootCmd.AddCommand(configCmd(opts))
	rootCmd.AddCommand(repositoryCmd(opts))
	rootCmd.AddCommand(accessServiceCmd(opts))
	rootCmd.AddCommand(eventBusCmd(opts))
	rootCmd.AddCommand(auditLogCmd(opts))
	rootCmd.AddCommand(archiveCmd(opts))
	rootCmd.AddCommand(journalCmd(opts))

	return rootCmd
}

// session loads the configuration and wires a service for one command.
func (o *globalOptions) session(ctx context.Context) (*orchestrator.Service, *orchestrator.Handler, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, nil, err
	}

	// Keep stdout for command output.
	quiet := logger.New(cfg.ViewService.Component)
	quiet.SetOutput(io.Discard)

	svc, err := orchestrator.Bootstrap(ctx, cfg, orchestrator.WithLogger(quiet))
	if err != nil {
		return nil, nil, err
	}
	return svc, svc.Handler.ForUser(o.userID), nil
}

func (o *globalOptions) requireServer() error {
	if o.serverName == "" {
		return fmt.Errorf("--server is required")
	}
	return nil
}

// withServer runs fn against a wired handler for the selected server.
func (o *globalOptions) withServer(cmd *cobra.Command, fn func(ctx context.Context, svc *orchestrator.Service, h *orchestrator.Handler) error) error {
	if err := o.requireServer(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, h, err := o.session(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	return fn(ctx, svc, h)
}

func parseJSONFlag(name, value string) (map[string]interface{}, error) {
	if value == "" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		return nil, fmt.Errorf("--%s must be a JSON object: %w", name, err)
	}
	return m, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDone(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), "✅ "+format+"\n", args...)
}

func endpointsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "Inspect the resource endpoint registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the registered platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, h, err := opts.session(context.Background())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			eps := h.ResourceEndpoints()
			if len(eps.Platforms) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No platforms are registered.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered platforms (%d):\n", len(eps.Platforms))
			fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 50))
			for _, p := range eps.Platforms {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", p.Name, p.RootURL)
			}
			return nil
		},
	})

	return cmd
}

func configCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read, replace and deploy server configuration documents",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "example",
		Short: "Print an example view service configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), config.GenerateExampleConfigFile())
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the stored configuration of a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServer(cmd, func(ctx context.Context, _ *orchestrator.Service, h *orchestrator.Handler) error {
				doc, err := h.GetStoredConfiguration(ctx, opts.serverName)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), json.RawMessage(doc))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "active",
		Short: "Print the configuration of the running server instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServer(cmd, func(ctx context.Context, _ *orchestrator.Service, h *orchestrator.Handler) error {
				doc, err := h.GetActiveConfiguration(ctx, opts.serverName)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), json.RawMessage(doc))
			})
		},
	})

	var file string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the stored configuration of a server",
		Long: `Replace the stored configuration of a server with a JSON document.

Examples:
  serverauthorctl config set --server cocoMDS1 --file cocoMDS1.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			doc, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if !json.Valid(doc) {
				return fmt.Errorf("%s is not a JSON document", file)
			}
			return opts.withServer(cmd, func(ctx context.Context, _ *orchestrator.Service, h *orchestrator.Handler) error {
				if err := h.SetServerConfig(ctx, opts.serverName, adminclient.ServerConfig(doc)); err != nil {
					return err
				}
				printDone(cmd, "Configuration of %s replaced", opts.serverName)
				return nil
			})
		},
	}
	setCmd.Flags().StringVarP(&file, "file", "f", "", "JSON configuration document (required)")
	cmd.AddCommand(setCmd)

	var platform string
	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the stored configuration to a registered platform",
		Long: `Deploy the stored configuration of a server to another platform.

Examples:
  serverauthorctl config deploy --server cocoMDS1 --platform Platform2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if platform == "" {
				return fmt.Errorf("--platform is required")
			}
			return opts.withServer(cmd, func(ctx context.Context, _ *orchestrator.Service, h *orchestrator.Handler) error {
				if err := h.DeployServerConfig(ctx, platform, opts.serverName); err != nil {
					return err
				}
				printDone(cmd, "Configuration of %s deployed to %s", opts.serverName, platform)
				return nil
			})
		},
	}
	deployCmd.Flags().StringVarP(&platform, "platform", "p", "", "Destination platform name (required)")
	cmd.AddCommand(deployCmd)

	return cmd
}

func repositoryCmd(opts *globalOptions) *cobra.Command {
	var props string

	cmd := &cobra.Command{
		Use:       "repository <in-memory|graph|read-only>",
		Short:     "Set the local repository mode of a server",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"in-memory", "graph", "read-only"},
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := map[string]adminclient.LocalRepositoryMode{
				"in-memory": adminclient.ModeInMemory,
				"graph":     adminclient.ModeLocalGraph,
				"read-only": adminclient.ModeReadOnly,
			}
			storage, err := parseJSONFlag("storage-properties", props)
			if err != nil {
				return err
			}
			return opts.withServer(cmd, func(ctx context.Context, _ *orchestrator.Service, h *orchestrator.Handler) error {
				if err := h.SetLocalRepositoryMode(ctx, opts.serverName, modes[args[0]], storage); err != nil {
					return err
				}
				printDone(cmd, "Local repository of %s set to %s", opts.serverName, modes[args[0]])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&props, "storage-properties", "", "Graph repository storage properties as a JSON object")

	return cmd
}

func accessServiceCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access-service",
		Short: "Configure access services",
	}

	var options string
	enableCmd := &cobra.Command{
		Use:   "enable [service-url-marker]",
		Short: "Enable one access service, or all of them when no marker is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseJSONFlag("options", options)
			if err != nil {
				return err
			}
			return opts.withServer(cmd, func(ctx context.Context, _ *orchestrator.Service, h *orchestrator.Handler) error {
				if len(args) == 0 {
					if err := h.ConfigureAllAccessServices(ctx, opts.serverName, parsed); err != nil {
						return err
					}
					printDone(cmd, "All access services enabled on %s", opts.serverName)
					return nil
				}
				if err := h.ConfigureAccessService(ctx, opts.serverName, args[0], parsed); err != nil {
					return err
				}
				printDone(cmd, "Access service %s enabled on %s", args[0], opts.serverName)
				return nil
			})
		},
	}
	enableCmd.Flags().StringVar(&options, "options", "", "Access service options as a JSON object")
	cmd.AddCommand(enableCmd)

	return cmd
}

func eventBusCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event-bus",
		Short: "Configure the event bus",
	}

	var provider, topicRoot, props string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set the event bus of a server",
		Long: `Set the event bus of a server.

Examples:
  serverauthorctl event-bus set --server cocoMDS1 --topic-root egeria \
    --properties '{"producer":{"bootstrap.servers":"localhost:9092"}}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseJSONFlag("properties", props)
			if err != nil {
				return err
			}
			bus := adminclient.EventBusConfig{
				ConnectorProvider:       provider,
				TopicURLRoot:            topicRoot,
				ConfigurationProperties: parsed,
			}
			return opts.withServer(cmd, func(ctx context.Context, _ *orchestrator.Service, h *orchestrator.Handler) error {
				if err := h.SetEventBus(ctx, opts.serverName, bus); err != nil {
					return err
				}
				printDone(cmd, "Event bus of %s configured", opts.serverName)
				return nil
			})
		},
	}
	setCmd.Flags().StringVar(&provider, "connector-provider", "", "Connector provider class name")
	setCmd.Flags().StringVar(&topicRoot, "topic-root", "", "Topic URL root")
	setCmd.Flags().StringVar(&props, "properties", "", "Configuration properties as a JSON object")
	cmd.AddCommand(setCmd)

	return cmd
}

func auditLogCmd(opts *globalOptions) *cobra.Command {
	var severities []string
	var connectionFile string

	cmd := &cobra.Command{
		Use:       "audit-log <default|console|slf4j|file|event-topic|connection>",
		Short:     "Add an audit log destination",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"default", "console", "slf4j", "file", "event-topic", "connection"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := map[string]adminclient.AuditLogDestinationKind{
				"default":     adminclient.AuditLogDefault,
				"console":     adminclient.AuditLogConsole,
				"slf4j":       adminclient.AuditLogSLF4J,
				"file":        adminclient.AuditLogFiles,
				"event-topic": adminclient.AuditLogEventTopic,
				"connection":  adminclient.AuditLogConnection,
			}
			kind := kinds[args[0]]

			var conn *adminclient.Connection
			if kind == adminclient.AuditLogConnection {
				if connectionFile == "" {
					return fmt.Errorf("--connection-file is required for connection destinations")
				}
				data, err := os.ReadFile(connectionFile)
				if err != nil {
					return err
				}
				conn = &adminclient.Connection{}
				if err := json.Unmarshal(data, conn); err != nil {
					return fmt.Errorf("invalid connection document: %w", err)
				}
			}

			return opts.withServer(cmd, func(ctx context.Context, _ *orchestrator.Service, h *orchestrator.Handler) error {
				var err error
				if conn != nil {
					err = h.AddAuditLogDestination(ctx, opts.serverName, conn)
				} else {
					err = h.AddSeverityAuditLogDestination(ctx, opts.serverName, kind, severities)
				}
				if err != nil {
					return err
				}
				printDone(cmd, "Audit log destination %s added to %s", args[0], opts.serverName)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&severities, "severity", nil, "Severities routed to the destination (repeatable)")
	cmd.Flags().StringVar(&connectionFile, "connection-file", "", "JSON connection document for connection destinations")

	return cmd
}

func archiveCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive and restore server configuration documents",
	}

	withArchiver := func(cmd *cobra.Command, fn func(ctx context.Context, a *archive.Archiver) error) error {
		return opts.withServer(cmd, func(ctx context.Context, svc *orchestrator.Service, h *orchestrator.Handler) error {
			if svc.Archive == nil {
				return fmt.Errorf("archive backend is not configured")
			}
			return fn(ctx, archive.NewArchiver(svc.Archive, h, svc.Config.Archive.Prefix))
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Archive the stored configuration of a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchiver(cmd, func(ctx context.Context, a *archive.Archiver) error {
				key, err := a.Archive(ctx, opts.serverName)
				if err != nil {
					return err
				}
				printDone(cmd, "Configuration of %s archived as %s", opts.serverName, key)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the archived configurations of a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchiver(cmd, func(ctx context.Context, a *archive.Archiver) error {
				keys, err := a.List(ctx, opts.serverName)
				if err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			})
		},
	})

	var key string
	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the stored configuration of a server with an archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				return fmt.Errorf("--key is required")
			}
			return withArchiver(cmd, func(ctx context.Context, a *archive.Archiver) error {
				if err := a.Restore(ctx, opts.serverName, key); err != nil {
					return err
				}
				printDone(cmd, "Configuration of %s restored from %s", opts.serverName, key)
				return nil
			})
		},
	}
	restoreCmd.Flags().StringVarP(&key, "key", "k", "", "Archive key to restore (required)")
	cmd.AddCommand(restoreCmd)

	return cmd
}

func journalCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the operations journal",
	}

	var operation string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent operations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := opts.session(context.Background())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if svc.Journal == nil {
				return fmt.Errorf("journal backend is not configured")
			}
			entries, err := svc.Journal.List(context.Background(), journal.Filter{
				ServerName: opts.serverName,
				Operation:  operation,
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-32s %-12s %-18s %s\n",
					e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Operation, e.ServerName, e.Outcome, e.Message)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&operation, "operation", "", "Only list this operation")
	listCmd.Flags().IntVar(&limit, "limit", journal.DefaultLimit, "Maximum entries to list")
	cmd.AddCommand(listCmd)

	return cmd
}
