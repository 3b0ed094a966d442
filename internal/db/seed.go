package db

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded sample account.
const DefaultPassword = "password123"

// DefaultUsers returns the four sample accounts the local mirror starts with.
// PasswordHash is left empty; callers hash DefaultPassword at their own cost.
func DefaultUsers() []User {
	stale := "2025-08-28"
	return []User{
		{
			ID:        "user1",
			Username:  "田中太郎",
			Email:     "tanaka@example.com",
			AvatarURL: "https://via.placeholder.com/100x100?text=田",
			Bio:       "よろしくお願いします！お酒好きです🍻",
			Phone:     "090-1234-5678",
			IsActive:  true,
		},
		{
			ID:               "user2",
			Username:         "佐藤花子",
			Email:            "sato@example.com",
			AvatarURL:        "https://via.placeholder.com/100x100?text=佐",
			Bio:              "楽しく飲める仲間を探してます♪",
			Phone:            "080-9876-5432",
			IsDrinkingToday:  true,
			LastDrinkingDate: &stale,
			IsActive:         true,
		},
		{
			ID:               "user3",
			Username:         "山田次郎",
			Email:            "yamada@example.com",
			AvatarURL:        "https://via.placeholder.com/100x100?text=山",
			Bio:              "新しい出会いを求めています",
			IsDrinkingToday:  true,
			LastDrinkingDate: &stale,
			IsActive:         true,
		},
		{
			ID:        "user4",
			Username:  "鈴木美咲",
			Email:     "suzuki@example.com",
			AvatarURL: "https://via.placeholder.com/100x100?text=鈴",
			Bio:       "カジュアルに飲める人募集中です",
			Phone:     "070-5555-1111",
			IsActive:  true,
		},
	}
}

// EnsureDefaultUsers seeds the sample accounts when the users table is empty.
// It is a no-op on any database that already holds users.
func EnsureDefaultUsers(db *gorm.DB, bcryptCost int) (bool, error) {
	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	users, err := hashedDefaultUsers(bcryptCost)
	if err != nil {
		return false, err
	}
	if err := db.Create(&users).Error; err != nil {
		return false, fmt.Errorf("failed to seed users: %w", err)
	}
	return true, nil
}

// SeedTestData resets the database and populates it with the sample users and
// a small follow graph.
//
// Behavior:
//  1. Clears existing data in every table.
//  2. Creates the four sample users with hashed passwords.
//  3. user1 <-> user2 and user1 <-> user3 become mutual follows; user4 -> user1 stays pending.
func SeedTestData(db *gorm.DB, bcryptCost int) error {
	for _, table := range []string{"notifications", "likes", "follows", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	users, err := hashedDefaultUsers(bcryptCost)
	if err != nil {
		return err
	}
	if err := db.Create(&users).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	log.Printf("Seeded %d users.", len(users))

	now := time.Now().UTC()
	edge := func(id, from, to string, status FollowStatus) Follow {
		f := Follow{ID: id, FollowerID: from, FollowingID: to, Status: status, RequestedAt: now}
		if status != FollowPending {
			f.RespondedAt = &now
		}
		return f
	}
	follows := []Follow{
		edge("follow1", "user1", "user2", FollowAccepted),
		edge("follow2", "user2", "user1", FollowAccepted),
		edge("follow3", "user1", "user3", FollowAccepted),
		edge("follow4", "user3", "user1", FollowAccepted),
		edge("follow5", "user4", "user1", FollowPending),
	}
	if err := db.Create(&follows).Error; err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}
	log.Printf("Seeded %d follows.", len(follows))

	return nil
}

func hashedDefaultUsers(cost int) ([]User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	users := DefaultUsers()
	for i := range users {
		users[i].PasswordHash = string(hash)
	}
	return users, nil
}
