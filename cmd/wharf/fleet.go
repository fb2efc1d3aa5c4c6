package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/wharf/pkg/wharf/config"
	"github.com/jamesainslie/wharf/pkg/wharf/fleet"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Manage the yachts a tree can be moored to",
	Long: `Manage the fleet registry: the remote hosts (yachts) trees are pushed
to with 'wharf moor'. The registry is stored as YAML at fleet.path
(default: $XDG_DATA_HOME/wharf/fleet.yaml).`,
}

var fleetAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a yacht",
	Args:  cobra.ExactArgs(1),
	RunE:  runFleetAdd,
}

var fleetRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a yacht",
	Args:    cobra.ExactArgs(1),
	RunE:    runFleetRemove,
}

var fleetListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List yachts",
	Args:    cobra.NoArgs,
	RunE:    runFleetList,
}

var fleetStatusCmd = &cobra.Command{
	Use:   "status [name|all]",
	Short: "Show yacht details",
	Long:  `Show the settings of one yacht, or of every enabled yacht with "all".`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFleetStatus,
}

var (
	fleetIP       string
	fleetDomain   string
	fleetAdapter  string
	fleetUser     string
	fleetPort     int
	fleetWebRoot  string
	fleetTags     []string
	fleetDisabled bool
	fleetDetailed bool
)

func init() {
	fleetAddCmd.Flags().StringVar(&fleetIP, "ip", "", "yacht IP address or hostname")
	fleetAddCmd.Flags().StringVar(&fleetDomain, "domain", "", "site domain")
	fleetAddCmd.Flags().StringVar(&fleetAdapter, "adapter", string(fleet.WordPress), "CMS adapter: wordpress, drupal, moodle, joomla, custom")
	fleetAddCmd.Flags().StringVar(&fleetUser, "user", fleet.DefaultSSHUser, "ssh user")
	fleetAddCmd.Flags().IntVar(&fleetPort, "port", fleet.DefaultSSHPort, "ssh port")
	fleetAddCmd.Flags().StringVar(&fleetWebRoot, "web-root", fleet.DefaultWebRoot, "remote directory trees are synced into")
	fleetAddCmd.Flags().StringSliceVar(&fleetTags, "tag", nil, "tags (can be specified multiple times)")
	fleetAddCmd.Flags().BoolVar(&fleetDisabled, "disabled", false, "add the yacht disabled")
	_ = fleetAddCmd.MarkFlagRequired("ip")
	_ = fleetAddCmd.MarkFlagRequired("domain")

	fleetListCmd.Flags().BoolVarP(&fleetDetailed, "long", "l", false, "show a table of yacht settings")

	fleetCmd.AddCommand(fleetAddCmd)
	fleetCmd.AddCommand(fleetRemoveCmd)
	fleetCmd.AddCommand(fleetListCmd)
	fleetCmd.AddCommand(fleetStatusCmd)
	rootCmd.AddCommand(fleetCmd)
}

// fleetPath returns the configured registry path.
func fleetPath() string {
	if cfg.Fleet.Path == "" {
		return config.DefaultFleetPath()
	}
	return cfg.Fleet.Path
}

func loadFleet() (*fleet.Fleet, error) {
	f, err := fleet.Load(fleetPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load fleet: %w", err)
	}
	return f, nil
}

func runFleetAdd(_ *cobra.Command, args []string) error {
	adapter, err := fleet.ParseAdapter(fleetAdapter)
	if err != nil {
		return err
	}

	f, err := loadFleet()
	if err != nil {
		return err
	}

	y := fleet.NewYacht(args[0], fleetIP, fleetDomain)
	y.Adapter = adapter
	y.SSHUser = fleetUser
	y.SSHPort = fleetPort
	y.WebRoot = fleetWebRoot
	y.Tags = fleetTags
	y.Enabled = !fleetDisabled

	if err := f.Add(y); err != nil {
		return err
	}
	if err := f.Save(fleetPath()); err != nil {
		return err
	}

	printInfo("Added yacht %q (%s)", y.Name, y.Domain)
	return nil
}

func runFleetRemove(_ *cobra.Command, args []string) error {
	f, err := loadFleet()
	if err != nil {
		return err
	}
	if err := f.Remove(args[0]); err != nil {
		return err
	}
	if err := f.Save(fleetPath()); err != nil {
		return err
	}

	printInfo("Removed yacht %q", args[0])
	return nil
}

func runFleetList(cmd *cobra.Command, _ []string) error {
	f, err := loadFleet()
	if err != nil {
		return err
	}

	yachts := f.List()
	out := cmd.OutOrStdout()
	if len(yachts) == 0 {
		printInfo("No yachts in fleet.")
		printInfo("Add one with: wharf fleet add <name> --ip <ip> --domain <domain>")
		return nil
	}

	if !fleetDetailed {
		for _, y := range yachts {
			fmt.Fprintln(out, y.Name)
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tIP\tDOMAIN\tADAPTER\tSTATUS")
	for _, y := range yachts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", y.Name, y.IP, y.Domain, y.Adapter, enabledLabel(y.Enabled))
	}
	return tw.Flush()
}

func runFleetStatus(cmd *cobra.Command, args []string) error {
	f, err := loadFleet()
	if err != nil {
		return err
	}

	name := "all"
	if len(args) > 0 {
		name = args[0]
	}

	out := cmd.OutOrStdout()
	if name == "all" {
		for i, y := range f.Enabled() {
			if i > 0 {
				fmt.Fprintln(out)
			}
			printYacht(out, y)
		}
		return nil
	}

	y, err := f.Get(name)
	if err != nil {
		return err
	}
	printYacht(out, y)
	return nil
}

func printYacht(w io.Writer, y fleet.Yacht) {
	fmt.Fprintf(w, "Yacht: %s\n", y.Name)
	fmt.Fprintf(w, "  Domain:   %s\n", y.Domain)
	fmt.Fprintf(w, "  IP:       %s\n", y.IP)
	fmt.Fprintf(w, "  SSH:      %s:%d\n", y.SSHUser, y.SSHPort)
	fmt.Fprintf(w, "  Web root: %s\n", y.WebRoot)
	fmt.Fprintf(w, "  Adapter:  %s\n", y.Adapter)
	fmt.Fprintf(w, "  Database: %s (%d:%d)\n", y.Database.Variant, y.Database.PublicPort, y.Database.ShadowPort)
	fmt.Fprintf(w, "  Status:   %s\n", enabledLabel(y.Enabled))
	if len(y.Tags) > 0 {
		fmt.Fprintf(w, "  Tags:     %s\n", strings.Join(y.Tags, ", "))
	}
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
