package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/yukikurage/taskscope/internal/access"
	"github.com/yukikurage/taskscope/internal/config"
	"github.com/yukikurage/taskscope/internal/database"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/repository"
	"github.com/yukikurage/taskscope/internal/services"
	"gorm.io/gorm"
)

// operator acts with SUPERADMIN rights for commands run on the host.
var operator = access.Principal{ID: ^uint64(0), Role: models.RoleSuperAdmin}

// openDB is replaced in tests.
var openDB = func() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := database.Connect(cfg); err != nil {
		return nil, err
	}
	return database.GetDB(), nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "manage",
		Short:         "Operator commands for the task API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newCreateSuperAdminCmd())
	root.AddCommand(newAssignManagerCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			database.SetDB(db)
			return database.Migrate()
		},
	}
}

func newCreateSuperAdminCmd() *cobra.Command {
	var input services.AccountInput

	cmd := &cobra.Command{
		Use:   "create-superadmin",
		Short: "Create a SUPERADMIN account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}

			accounts := services.NewAccountService(repository.NewUserRepository(db), repository.NewTaskRepository(db))
			input.Role = models.RoleSuperAdmin
			user, err := accounts.CreateStaff(operator, input)
			if err != nil {
				return err
			}

			log.Printf("created superadmin %q (id %d)", user.Username, user.ID)
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Username, "username", "", "login name")
	cmd.Flags().StringVar(&input.Email, "email", "", "email address")
	cmd.Flags().StringVar(&input.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAssignManagerCmd() *cobra.Command {
	var userID, managerID uint64

	cmd := &cobra.Command{
		Use:   "assign-manager",
		Short: "Attach a USER account to a managing ADMIN (--manager 0 detaches)",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}

			var manager *uint64
			if managerID != 0 {
				manager = &managerID
			}

			accounts := services.NewAccountService(repository.NewUserRepository(db), repository.NewTaskRepository(db))
			user, err := accounts.AssignManager(operator, userID, manager)
			if err != nil {
				return err
			}

			log.Printf("user %q now managed by %v", user.Username, describeManager(user.ManagerID))
			return nil
		},
	}

	cmd.Flags().Uint64Var(&userID, "user", 0, "ID of the USER account")
	cmd.Flags().Uint64Var(&managerID, "manager", 0, "ID of the ADMIN account")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("manager")
	return cmd
}

func describeManager(id *uint64) string {
	if id == nil {
		return "nobody"
	}
	return fmt.Sprintf("admin %d", *id)
}
