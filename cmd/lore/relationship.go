package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var relationshipCmd = &cobra.Command{
	Use:   "relationship",
	Short: "Manage relationships between entities",
	Long:  `Create, list, and manage relationships between Lore entities.`,
}

var relationshipCreateCmd = &cobra.Command{
	Use:   "create <from_type>:<from_id> <relation> <to_type>:<to_id>",
	Short: "Create a relationship between two entities",
	Long: `Create a relationship between two Lore entities. Both entities must exist.

Examples:
  lore relationship create character:john-doe friend character:jane-smith
  lore relationship create character:john-doe located_in place:winterfell
  lore relationship create character:john-doe member_of group:stark-family`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, relation, to, err := parseRelationshipArgs(args)
		if err != nil {
			return err
		}
		if err := loreStore.PutRelationship(cmd.Context(), from, relation, to); err != nil {
			return fmt.Errorf("failed to create relationship: %w", err)
		}
		if !opts.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Created relationship: %s --[%s]--> %s\n", from, relation, to)
		}
		return nil
	},
}

var relationshipListCmd = &cobra.Command{
	Use:   "list <entity_type>:<entity_id>",
	Short: "List all relationships for an entity",
	Long: `List all relationships (incoming and outgoing) for a given entity.

Examples:
  lore relationship list character:john-doe
  lore relationship list place:winterfell`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := ParseRef(args[0])
		if err != nil {
			return fmt.Errorf("invalid entity: %w", err)
		}
		ewr, err := loreStore.GetEntityWithRelationships(cmd.Context(), ref)
		if err != nil {
			return err
		}
		return out(cmd).EntityWithRelationships(ewr)
	},
}

var relationshipDeleteCmd = &cobra.Command{
	Use:   "delete <from_type>:<from_id> <relation> <to_type>:<to_id>",
	Short: "Delete a relationship between two entities",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, relation, to, err := parseRelationshipArgs(args)
		if err != nil {
			return err
		}
		prompt := fmt.Sprintf("Delete the relationship %s --[%s]--> %s?", from, relation, to)
		if !opts.Yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
			fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
			return nil
		}
		if err := loreStore.DeleteRelationship(cmd.Context(), from, relation, to); err != nil {
			return fmt.Errorf("failed to delete relationship: %w", err)
		}
		if !opts.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted relationship: %s --[%s]--> %s\n", from, relation, to)
		}
		return nil
	},
}

func parseRelationshipArgs(args []string) (from Ref, relation string, to Ref, err error) {
	if from, err = ParseRef(args[0]); err != nil {
		return from, "", to, fmt.Errorf("invalid from entity: %w", err)
	}
	if to, err = ParseRef(args[2]); err != nil {
		return from, "", to, fmt.Errorf("invalid to entity: %w", err)
	}
	return from, args[1], to, nil
}

func init() {
	relationshipCmd.AddCommand(relationshipCreateCmd)
	relationshipCmd.AddCommand(relationshipListCmd)
	relationshipCmd.AddCommand(relationshipDeleteCmd)
}
