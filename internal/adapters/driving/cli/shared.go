package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

var sharedCmd = &cobra.Command{
	Use:   "shared",
	Short: "Work with shared template contexts",
	Long: `A shared context holds one template for a group of annotators. While a
context has a template it is managed: it can be pulled but not edited or
replaced. A context without a template can receive one with push.`,
}

var sharedConnectCmd = &cobra.Command{
	Use:   "connect [context]",
	Short: "Connect to a context and report its mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runSharedConnect,
}

var sharedStatusCmd = &cobra.Command{
	Use:   "status [context]",
	Short: "Show the shared template of a context",
	Args:  cobra.ExactArgs(1),
	RunE:  runSharedStatus,
}

var sharedPushCmd = &cobra.Command{
	Use:   "push [context] [template]",
	Short: "Publish a local template to an unmanaged context",
	Args:  cobra.ExactArgs(2),
	RunE:  runSharedPush,
}

var sharedPullCmd = &cobra.Command{
	Use:   "pull [context] [name]",
	Short: "Save the shared template as a local copy",
	Args:  cobra.ExactArgs(2),
	RunE:  runSharedPull,
}

// sharedLocal is the local template activated before connecting.
var sharedLocal string

func init() {
	sharedConnectCmd.Flags().StringVarP(&sharedLocal, "template", "t", "", "Local template to keep active when the context is unmanaged")

	sharedCmd.AddCommand(sharedConnectCmd)
	sharedCmd.AddCommand(sharedStatusCmd)
	sharedCmd.AddCommand(sharedPushCmd)
	sharedCmd.AddCommand(sharedPullCmd)
	rootCmd.AddCommand(sharedCmd)
}

func connectShared(ctx context.Context, contextID, local string) (domain.SourceMode, error) {
	if coordinator == nil {
		return "", errNotConfigured("coordinator")
	}
	if coordinator.ContextID() != "" {
		coordinator.Disconnect()
	}
	if local != "" {
		if err := coordinator.UseLocal(ctx, local); err != nil {
			return "", err
		}
	}
	mode, err := coordinator.Connect(ctx, contextID)
	if err != nil {
		return mode, fmt.Errorf("failed to connect to %s: %w", contextID, err)
	}
	return mode, nil
}

func runSharedConnect(cmd *cobra.Command, args []string) error {
	mode, err := connectShared(context.Background(), args[0], sharedLocal)
	if err != nil {
		return err
	}
	cmd.Printf("Connected to %s: %s\n", args[0], mode.Description())
	if t := coordinator.Active(); t != nil {
		cmd.Printf("Active template: %s (%d fields)\n", t.Name, len(t.Fields))
	}
	return nil
}

func runSharedStatus(cmd *cobra.Command, args []string) error {
	mode, err := connectShared(context.Background(), args[0], "")
	if err != nil {
		return err
	}

	cmd.Printf("Context:  %s\n", args[0])
	cmd.Printf("Mode:     %s\n", mode)
	cmd.Printf("Editable: %s\n", yesNo(coordinator.Editable()))
	t := coordinator.Active()
	if mode != domain.SourceSharedManaged || t == nil {
		cmd.Println("Template: (none)")
		return nil
	}
	cmd.Printf("Template: %s\n", t.Name)
	for _, f := range t.Fields {
		cmd.Printf("  %-24s %s\n", f.ID, f.Type)
	}
	return nil
}

func runSharedPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	contextID, local := args[0], args[1]

	mode, err := connectShared(ctx, contextID, local)
	if err != nil {
		return err
	}
	if mode == domain.SourceSharedManaged {
		return fmt.Errorf("%w: %s already has a template, pull it instead", domain.ErrTemplateManaged, contextID)
	}
	if err := coordinator.SaveShared(ctx); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	cmd.Printf("Published %s to %s\n", local, contextID)
	return nil
}

func runSharedPull(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	contextID, name := args[0], args[1]

	mode, err := connectShared(ctx, contextID, "")
	if err != nil {
		return err
	}
	if mode != domain.SourceSharedManaged {
		return errors.New(contextID + " has no shared template yet")
	}
	if err := coordinator.SaveLocalCopy(ctx, name); err != nil {
		return fmt.Errorf("failed to save local copy: %w", err)
	}
	cmd.Printf("Saved the template of %s as %s\n", contextID, name)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
