package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/grc-cli/internal/project"
	"github.com/sells-group/grc-cli/internal/store"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage compliance projects",
	Long:  "Commands for creating, inspecting, verifying, and deleting projects.",
}

// -- projects list --

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		industry, _ := cmd.Flags().GetString("industry")
		limit, _ := cmd.Flags().GetInt("limit")

		projects, err := env.Service.List(ctx, store.ProjectFilter{IndustryID: industry, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "projects list")
		}

		if len(projects) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No projects found.")
			return nil
		}

		formatProjectsList(cmd.OutOrStdout(), projects)
		return nil
	},
}

// -- projects show --

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show the full project document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		doc, err := env.Service.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "projects show")
		}

		return writeIndentedJSON(cmd.OutOrStdout(), doc)
	},
}

// -- projects create --

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project from a YAML request file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path, _ := cmd.Flags().GetString("file")
		req, err := readCreateRequest(path)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		actor, _ := cmd.Flags().GetString("actor")
		res, err := env.Service.Create(ctx, *req, actor)
		if err != nil {
			if ve, ok := project.AsValidation(err); ok {
				formatValidationError(cmd.ErrOrStderr(), ve)
			}
			return eris.Wrap(err, "projects create")
		}

		fmt.Fprintln(cmd.OutOrStdout(), res.ProjectID)
		return nil
	},
}

// -- projects delete --

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project, its checklist, and its evidence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		actor, _ := cmd.Flags().GetString("actor")
		summary, err := env.Service.Delete(ctx, args[0], actor)
		if err != nil {
			return eris.Wrap(err, "projects delete")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s), %d evidence file(s)\n",
			summary.ProjectID, summary.Name, summary.EvidenceFiles)
		return nil
	},
}

// -- projects verify --

var projectsVerifyCmd = &cobra.Command{
	Use:   "verify <project-id>",
	Short: "Compare stored fingerprints against the current taxonomy and packs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Service.Fingerprint(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "projects verify")
		}

		formatFingerprintReport(cmd.OutOrStdout(), report)

		strict, _ := cmd.Flags().GetBool("strict")
		if strict && !report.UpToDate() {
			return eris.Errorf("project %s has drifted", args[0])
		}
		return nil
	},
}

func init() {
	projectsListCmd.Flags().String("industry", "", "filter by industry id")
	projectsListCmd.Flags().Int("limit", 50, "max number of projects to display")

	projectsCreateCmd.Flags().String("file", "", "YAML create request")
	_ = projectsCreateCmd.MarkFlagRequired("file")

	for _, c := range []*cobra.Command{projectsCreateCmd, projectsDeleteCmd} {
		c.Flags().String("actor", defaultActor(), "actor recorded in the audit log")
	}

	projectsVerifyCmd.Flags().Bool("strict", false, "exit non-zero when anything has drifted")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsShowCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
	projectsCmd.AddCommand(projectsVerifyCmd)
	rootCmd.AddCommand(projectsCmd)
}

// readCreateRequest decodes a create request. JSON files are valid YAML.
func readCreateRequest(path string) (*project.CreateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read request %s", path)
	}
	var req project.CreateRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, eris.Wrapf(err, "parse request %s", path)
	}
	return &req, nil
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
