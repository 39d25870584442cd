package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	rbacdm "github.com/frahmantamala/agent-management/internal/core/datamodel/rbac"
	userdm "github.com/frahmantamala/agent-management/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the permission catalogue and default accounts",
	Long:  `Creates the permission catalogue, the admin/user/agent roles and default accounts. Safe to run repeatedly.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := initGorm(sqlxDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			clearSeedData(db)
		}

		permissions := seedPermissions(db)
		roles := seedRoles(db, permissions)
		seedUsers(db, roles)

		fmt.Println("seeding complete")
	},
}

type seedPermission struct {
	Name     string
	Desc     string
	Category string
}

var permissionCatalogue = []seedPermission{
	{"users.create", "Create users", "users"},
	{"users.read", "View users", "users"},
	{"users.update", "Update users", "users"},
	{"users.delete", "Delete users", "users"},
	{"roles.create", "Create roles", "roles"},
	{"roles.read", "View roles", "roles"},
	{"roles.update", "Update roles", "roles"},
	{"roles.delete", "Delete roles", "roles"},
	{"roles.assign", "Assign roles to users", "roles"},
	{"permissions.create", "Create permissions", "permissions"},
	{"permissions.read", "View permissions", "permissions"},
	{"permissions.update", "Update permissions", "permissions"},
	{"permissions.delete", "Delete permissions", "permissions"},
	{"agents.create", "Create agents", "agents"},
	{"agents.read", "View agents", "agents"},
	{"agents.update", "Update agents and the hierarchy", "agents"},
	{"agents.delete", "Delete agents", "agents"},
	{"system.admin", "Full administrative access", "system"},
}

// rolePermissions maps each seed role to the permission names it carries.
var rolePermissions = map[string][]string{
	"admin": permissionNames(permissionCatalogue),
	"user":  {"users.read"},
	"agent": {"users.read", "agents.read"},
}

func permissionNames(perms []seedPermission) []string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	return names
}

func seedPermissions(db *gorm.DB) map[string]string {
	byName := make(map[string]string, len(permissionCatalogue))

	for _, p := range permissionCatalogue {
		var existing rbacdm.Permission
		err := db.Where("name = ?", p.Name).First(&existing).Error
		if err == nil {
			byName[p.Name] = existing.ID
			continue
		}

		perm := rbacdm.Permission{
			ID:          uuid.NewString(),
			Name:        p.Name,
			Description: p.Desc,
			Category:    p.Category,
			IsActive:    true,
		}
		if err := db.Create(&perm).Error; err != nil {
			log.Fatalf("failed to seed permission %s: %v", p.Name, err)
		}
		byName[p.Name] = perm.ID
		fmt.Println("seeded permission:", p.Name)
	}

	return byName
}

func seedRoles(db *gorm.DB, permissions map[string]string) map[string]string {
	byName := make(map[string]string, len(rolePermissions))

	descriptions := map[string]string{
		"admin": "Full administrative access",
		"user":  "Default role for registered users",
		"agent": "Agent with hierarchy access",
	}

	for name, permNames := range rolePermissions {
		var role rbacdm.Role
		err := db.Where("name = ?", name).First(&role).Error
		if err != nil {
			role = rbacdm.Role{
				ID:          uuid.NewString(),
				Name:        name,
				Description: descriptions[name],
				IsActive:    true,
			}
			if err := db.Create(&role).Error; err != nil {
				log.Fatalf("failed to seed role %s: %v", name, err)
			}
			fmt.Println("seeded role:", name)
		}
		byName[name] = role.ID

		for _, permName := range permNames {
			permID, ok := permissions[permName]
			if !ok {
				log.Fatalf("unknown permission %s for role %s", permName, name)
			}
			err := db.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&rbacdm.RolePermission{RoleID: role.ID, PermissionID: permID}).Error
			if err != nil {
				log.Fatalf("failed to attach %s to %s: %v", permName, name, err)
			}
		}
	}

	return byName
}

func seedUsers(db *gorm.DB, roles map[string]string) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash seed password: %v", err)
	}

	accounts := []struct {
		Email    string
		Username string
		Role     string
	}{
		{"admin@example.com", "admin", "admin"},
		{"user@example.com", "user", "user"},
	}

	for _, a := range accounts {
		var existing userdm.User
		err := db.Where("email = ?", a.Email).First(&existing).Error
		if err == nil {
			fmt.Println("user already exists:", a.Email)
			ensureUserRole(db, existing.ID, roles[a.Role])
			continue
		}

		u := userdm.User{
			ID:           uuid.NewString(),
			Email:        a.Email,
			Username:     a.Username,
			PasswordHash: string(hash),
			IsActive:     true,
			UserType:     userdm.TypeUser,
		}
		if err := db.Create(&u).Error; err != nil {
			log.Fatalf("failed to seed user %s: %v", a.Email, err)
		}
		ensureUserRole(db, u.ID, roles[a.Role])
		fmt.Println("seeded user:", a.Email)
	}
}

func ensureUserRole(db *gorm.DB, userID, roleID string) {
	if roleID == "" {
		return
	}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rbacdm.UserRole{UserID: userID, RoleID: roleID}).Error
	if err != nil {
		log.Fatalf("failed to assign seed role: %v", err)
	}
}

func clearSeedData(db *gorm.DB) {
	// Join tables first so foreign keys stay satisfied.
	tables := []string{"user_roles", "user_permissions", "role_permissions", "agents", "users", "roles", "permissions"}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("failed to clear %s: %v", table, err)
		}
	}
	fmt.Println("cleared existing data")
}
