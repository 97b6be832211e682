package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// entityCommand builds the create/get/list/update/delete command group for
// one entity type.
func entityCommand(entityType EntityType, example string) *cobra.Command {
	name := string(entityType)
	parent := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Manage %ss", name),
		Long:  fmt.Sprintf(`Create, read, update, and delete %s entities.`, name),
	}

	create := &cobra.Command{
		Use:     "create <name> [flags]",
		Short:   fmt.Sprintf("Create a new %s", name),
		Example: fmt.Sprintf(`  lore %s create %q --summary "..." --tags "a,b"`, name, example),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := NewEntity(entityType, args[0])
			entity.ID, _ = cmd.Flags().GetString("id")
			applyEntityFlags(cmd, entity)

			if err := loreStore.PutEntity(cmd.Context(), entity); err != nil {
				return fmt.Errorf("failed to create %s: %w", name, err)
			}
			if !opts.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s '%s' with ID '%s'\n", name, entity.Name, entity.ID)
			}
			return nil
		},
	}
	addEntityFlags(create)
	create.Flags().String("id", "", "explicit ID (defaults to a slug of the name)")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Get a %s by ID", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := loreStore.GetEntity(cmd.Context(), Ref{Type: entityType, ID: args[0]})
			if err != nil {
				return err
			}
			return out(cmd).Entity(entity)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List all %ss", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entities, err := loreStore.ListEntities(cmd.Context(), entityType)
			if err != nil {
				return err
			}
			if tag, _ := cmd.Flags().GetString("tag"); tag != "" {
				entities = withTag(entities, tag)
			}
			return out(cmd).Entities(entities)
		},
	}
	list.Flags().String("tag", "", "only list entities carrying this tag")

	update := &cobra.Command{
		Use:   "update <id> [flags]",
		Short: fmt.Sprintf("Update an existing %s", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := loreStore.GetEntity(cmd.Context(), Ref{Type: entityType, ID: args[0]})
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				entity.Name, _ = cmd.Flags().GetString("name")
			}
			applyEntityFlags(cmd, entity)

			if err := loreStore.PutEntity(cmd.Context(), entity); err != nil {
				return fmt.Errorf("failed to update %s: %w", name, err)
			}
			if !opts.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s '%s'\n", name, entity.ID)
			}
			return nil
		},
	}
	addEntityFlags(update)
	update.Flags().String("name", "", "new display name")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s and its relationships", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := Ref{Type: entityType, ID: args[0]}
			if !opts.Yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %s?", ref)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
				return nil
			}
			if err := loreStore.DeleteEntity(cmd.Context(), ref); err != nil {
				return fmt.Errorf("failed to delete %s: %w", name, err)
			}
			if !opts.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", ref)
			}
			return nil
		},
	}

	parent.AddCommand(create, get, list, update, del)
	return parent
}

func addEntityFlags(cmd *cobra.Command) {
	cmd.Flags().String("summary", "", "one line summary")
	cmd.Flags().String("details", "", "longer notes")
	cmd.Flags().String("aka", "", "comma separated aliases")
	cmd.Flags().String("tags", "", "comma separated tags")
}

// applyEntityFlags copies the flags the user set onto entity.
func applyEntityFlags(cmd *cobra.Command, entity *Entity) {
	if cmd.Flags().Changed("summary") {
		entity.Summary, _ = cmd.Flags().GetString("summary")
	}
	if cmd.Flags().Changed("details") {
		entity.Details, _ = cmd.Flags().GetString("details")
	}
	if cmd.Flags().Changed("aka") {
		v, _ := cmd.Flags().GetString("aka")
		entity.Aka = splitList(v)
	}
	if cmd.Flags().Changed("tags") {
		v, _ := cmd.Flags().GetString("tags")
		entity.Tags = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func withTag(entities []*Entity, tag string) []*Entity {
	var out []*Entity
	for _, e := range entities {
		for _, t := range e.Tags {
			if strings.EqualFold(t, tag) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func confirm(in io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s (y/N): ", prompt)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
