package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// printer writes entities in the format chosen by --format.
type printer struct {
	w      io.Writer
	format string
}

func (p printer) json(v interface{}) error {
	encoder := json.NewEncoder(p.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Entity displays a single entity
func (p printer) Entity(entity *Entity) error {
	if p.format == "json" {
		return p.json(entity)
	}

	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "ID:\t%s\n", entity.ID)
	fmt.Fprintf(w, "Type:\t%s\n", entity.Type)
	fmt.Fprintf(w, "Name:\t%s\n", entity.Name)
	if len(entity.Aka) > 0 {
		fmt.Fprintf(w, "AKA:\t%s\n", strings.Join(entity.Aka, ", "))
	}
	if entity.Summary != "" {
		fmt.Fprintf(w, "Summary:\t%s\n", entity.Summary)
	}
	if entity.Details != "" {
		fmt.Fprintf(w, "Details:\t%s\n", entity.Details)
	}
	if len(entity.Tags) > 0 {
		fmt.Fprintf(w, "Tags:\t%s\n", strings.Join(entity.Tags, ", "))
	}
	fmt.Fprintf(w, "Created:\t%s\n", entity.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Updated:\t%s\n", entity.UpdatedAt.Format(time.RFC3339))
	return nil
}

// Entities displays multiple entities
func (p printer) Entities(entities []*Entity) error {
	if p.format == "json" {
		return p.json(entities)
	}
	if len(entities) == 0 {
		fmt.Fprintln(p.w, "No entities found")
		return nil
	}

	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSUMMARY\tTAGS\tUPDATED")
	for _, entity := range entities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			entity.ID,
			entity.Name,
			entity.Type,
			truncate(entity.Summary, 50),
			truncate(strings.Join(entity.Tags, ", "), 30),
			entity.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// EntityWithRelationships displays an entity with its relationships
func (p printer) EntityWithRelationships(ewr *EntityWithRelationships) error {
	if p.format == "json" {
		return p.json(ewr)
	}

	entity := ewr.Entity
	fmt.Fprintf(p.w, "Entity: %s (%s)\n", entity.Ref(), entity.Name)
	if entity.Summary != "" {
		fmt.Fprintf(p.w, "Summary: %s\n", entity.Summary)
	}
	fmt.Fprintln(p.w)

	if len(ewr.Outgoing) == 0 {
		fmt.Fprintln(p.w, "No outgoing relationships")
	} else {
		fmt.Fprintln(p.w, "Outgoing Relationships:")
		for _, rel := range ewr.Outgoing {
			fmt.Fprintf(p.w, "  --[%s]--> %s\n", rel.Relation, rel.To)
		}
	}
	fmt.Fprintln(p.w)

	if len(ewr.Incoming) == 0 {
		fmt.Fprintln(p.w, "No incoming relationships")
	} else {
		fmt.Fprintln(p.w, "Incoming Relationships:")
		for _, rel := range ewr.Incoming {
			fmt.Fprintf(p.w, "  <--[%s]-- %s\n", rel.Relation, rel.From)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
