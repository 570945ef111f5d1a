package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cuemby/zerocon/pkg/actions"
	"github.com/cuemby/zerocon/pkg/console"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a configuration file",
	Long: `Apply console resources from a YAML file.

Each document names a kind and carries the resource as its spec. A spec
without an id is created, one with an id replaces the existing resource.

Examples:
  # Create a service
  zerocon apply -f service.yaml

  # Apply several resources separated by ---
  zerocon apply -f access.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply, - for stdin (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

// document is one resource in an apply file
type document struct {
	Kind string    `yaml:"kind"`
	Spec yaml.Node `yaml:"spec"`
}

var applyKinds = map[string]bool{
	"node": true, "service": true, "certificate": true, "authority": true,
	"policy": true, "check": true, "alert": true, "secret": true,
	"user": true, "endpoint": true, "settings": true,
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	var r io.Reader = cmd.InOrStdin()
	if filename != "-" {
		f, err := os.Open(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		defer f.Close()
		r = f
	}

	docs, err := decodeDocuments(r)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return errors.New("no resources in file")
	}

	return withConsole(cmd, func(ctx context.Context, c *console.Console) error {
		for _, doc := range docs {
			result, err := applyDocument(ctx, c, doc)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Kind, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s\n", doc.Kind, result)
		}
		return nil
	})
}

// decodeDocuments reads every document of a multi-document YAML stream.
// Empty documents are skipped and kinds are checked before anything is
// sent to the server.
func decodeDocuments(r io.Reader) ([]document, error) {
	dec := yaml.NewDecoder(r)

	var docs []document
	for i := 1; ; i++ {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML document %d: %w", i, err)
		}
		if doc.Kind == "" && doc.Spec.Kind == 0 {
			continue
		}

		doc.Kind = strings.ToLower(strings.TrimSpace(doc.Kind))
		if !applyKinds[doc.Kind] {
			return nil, fmt.Errorf("document %d: unsupported kind %q", i, doc.Kind)
		}
		if doc.Spec.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("document %d: spec must be a mapping", i)
		}
		docs = append(docs, doc)
	}
}

func applyDocument(ctx context.Context, c *console.Console, doc document) (string, error) {
	switch doc.Kind {
	case "node":
		return applyEntity(ctx, c.Nodes, doc)
	case "service":
		return applyEntity(ctx, c.Services, doc)
	case "certificate":
		return applyEntity(ctx, c.Certificates, doc)
	case "authority":
		return applyEntity(ctx, c.Authorities, doc)
	case "policy":
		return applyEntity(ctx, c.Policies, doc)
	case "check":
		return applyEntity(ctx, c.Checks, doc)
	case "alert":
		return applyEntity(ctx, c.Alerts, doc)
	case "secret":
		return applyEntity(ctx, c.Secrets, doc)
	case "user":
		return applyEntity(ctx, c.Users, doc)
	case "endpoint":
		return applyEntity(ctx, c.Endpoints, doc)
	case "settings":
		var s types.Settings
		if err := doc.Spec.Decode(&s); err != nil {
			return "", err
		}
		return "saved", c.Settings.Commit(ctx, s)
	default:
		return "", fmt.Errorf("unsupported kind %q", doc.Kind)
	}
}

func applyEntity[T types.Entity](ctx context.Context, res *actions.Resource[T], doc document) (string, error) {
	var v T
	if err := doc.Spec.Decode(&v); err != nil {
		return "", err
	}
	if v.EntityID() == "" {
		return "created", res.Create(ctx, v)
	}
	return v.EntityID() + " updated", res.Commit(ctx, v)
}
