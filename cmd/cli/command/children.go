package command

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"terapiahub/internal/children"
	"terapiahub/internal/models"
)

var (
	childName      string
	childAge       int
	childDiagnosis string
)

var childrenCmd = &cobra.Command{
	Use:   "hijos",
	Short: "Manage the children of a parent account",
	Long:  `List, create, edit, delete and select the child you are currently viewing.`,
}

var childrenListCmd = &cobra.Command{
	Use:   "listar",
	Short: "List your children and the selected one",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := childService()
		if err != nil {
			return err
		}
		defer closeFn()

		if _, err := svc.Load(cmd.Context()); err != nil {
			return fmt.Errorf("failed to fetch children: %w", err)
		}
		printChildren(svc.Context())
		return nil
	},
}

var childrenSelectCmd = &cobra.Command{
	Use:   "seleccionar [child_id]",
	Short: "Select the child to view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid child ID: %w", err)
		}

		svc, closeFn, err := childService()
		if err != nil {
			return err
		}
		defer closeFn()

		if _, err := svc.Load(cmd.Context()); err != nil {
			return fmt.Errorf("failed to fetch children: %w", err)
		}
		svc.Select(cmd.Context(), id)

		selected := svc.Context().Selected()
		if selected == nil {
			color.Yellow("⚠️  Child %d is not in your list; selection kept anyway", id)
			return nil
		}
		fmt.Printf("✅ Now viewing %s (ID: %d)\n", selected.Nombre, selected.ID)
		return nil
	},
}

var childrenCreateCmd = &cobra.Command{
	Use:   "crear",
	Short: "Register a new child",
	RunE: func(cmd *cobra.Command, args []string) error {
		if childName == "" {
			return errors.New("--nombre is required")
		}

		svc, closeFn, err := childService()
		if err != nil {
			return err
		}
		defer closeFn()

		child, err := svc.Create(cmd.Context(), childRequest(cmd))
		if err != nil {
			return fmt.Errorf("failed to create child: %w", err)
		}
		fmt.Printf("✅ Registered %s (ID: %d)\n", child.Nombre, child.ID)
		return nil
	},
}

var childrenUpdateCmd = &cobra.Command{
	Use:   "editar [child_id]",
	Short: "Update a child's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid child ID: %w", err)
		}
		if childName == "" {
			return errors.New("--nombre is required")
		}

		svc, closeFn, err := childService()
		if err != nil {
			return err
		}
		defer closeFn()

		child, err := svc.Update(cmd.Context(), id, childRequest(cmd))
		if err != nil {
			return fmt.Errorf("failed to update child %d: %w", id, err)
		}
		fmt.Printf("✅ Updated %s (ID: %d)\n", child.Nombre, child.ID)
		return nil
	},
}

var childrenDeleteCmd = &cobra.Command{
	Use:   "eliminar [child_id]",
	Short: "Delete a child",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid child ID: %w", err)
		}

		svc, closeFn, err := childService()
		if err != nil {
			return err
		}
		defer closeFn()

		// load first so a stored selection of this child gets cleared
		if _, err := svc.Load(cmd.Context()); err != nil {
			return fmt.Errorf("failed to fetch children: %w", err)
		}
		if err := svc.Delete(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete child %d: %w", id, err)
		}
		fmt.Printf("✅ Deleted child %d\n", id)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{childrenCreateCmd, childrenUpdateCmd} {
		c.Flags().StringVar(&childName, "nombre", "", "child's name")
		c.Flags().IntVar(&childAge, "edad", 0, "age in years")
		c.Flags().StringVar(&childDiagnosis, "diagnostico", "", "diagnosis")
	}

	childrenCmd.AddCommand(childrenListCmd)
	childrenCmd.AddCommand(childrenSelectCmd)
	childrenCmd.AddCommand(childrenCreateCmd)
	childrenCmd.AddCommand(childrenUpdateCmd)
	childrenCmd.AddCommand(childrenDeleteCmd)
}

// childService builds a service for the signed-in parent. The returned func
// releases the Redis connection, if any.
func childService() (*children.Service, func(), error) {
	session, client, _, err := currentSession()
	if err != nil {
		return nil, nil, err
	}
	if session.Role != models.RoleParent {
		return nil, nil, fmt.Errorf("children are managed from a %s account, signed in as %s", models.RoleParent, session.Role)
	}

	var selection children.SelectionStore
	closeFn := func() {}
	if cfg.RedisURL != "" {
		store, err := children.NewRedisSelectionStore(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			logger.Warn("selection_store_unavailable", "error", err)
		} else {
			selection = store
			closeFn = func() { store.Close() }
		}
	}

	svc := children.NewService(client, children.NewSelectedChildContext(), selection, session.UserID, logger)
	return svc, closeFn, nil
}

func childRequest(cmd *cobra.Command) *models.ChildRequest {
	req := &models.ChildRequest{Nombre: childName}
	if cmd.Flags().Changed("edad") {
		age := childAge
		req.Edad = &age
	}
	if childDiagnosis != "" {
		d := childDiagnosis
		req.Diagnostico = &d
	}
	return req
}

func printChildren(ctx *children.SelectedChildContext) {
	list := ctx.Children()
	if len(list) == 0 {
		fmt.Println("👶 No children registered")
		return
	}

	selectedID := ctx.SelectedID()
	fmt.Printf("👶 Your children (%d)\n", len(list))
	fmt.Println("─────────────────────────────────────────────────────────")
	for i, c := range list {
		line := fmt.Sprintf("%d. %s (ID: %d)", i+1, c.Nombre, c.ID)
		if c.Edad != nil {
			line += fmt.Sprintf(", %d años", *c.Edad)
		}
		if selectedID != nil && *selectedID == c.ID {
			color.Green("%s  ← selected", line)
			continue
		}
		fmt.Println(line)
	}
}
