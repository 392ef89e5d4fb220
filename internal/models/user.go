// Package models содержит доменную модель пользователя системы,
// включающую данные учётной записи, хэш пароля, роль и временные метки.
// Структура используется в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Role роль пользователя, определяющая доступ к платным функциям тренажёра.
type Role string

const (
	// RoleUser роль, которую получает каждый новый пользователь.
	RoleUser Role = "user"
	// RolePremium роль после оплаты доступа.
	RolePremium Role = "premium_user"
	// RoleAdmin администратор.
	RoleAdmin Role = "admin"
)

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePremium, RoleAdmin:
		return true
	}
	return false
}

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           int64     // Идентификатор, назначается базой данных
	Email        string    // Электронная почта (уникальная)
	PasswordHash string    // bcrypt-хэш пароля
	Name         string    // Имя пользователя
	Phone        *string   // Телефон, необязательное поле
	Role         Role      // Роль пользователя
	CreatedAt    time.Time // Дата создания
	UpdatedAt    time.Time // Дата последнего изменения строки
}

// PublicUser представление пользователя для ответов API, без хэша пароля.
type PublicUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public возвращает представление пользователя без чувствительных полей.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Subject данные о пользователе, которые переносит токен доступа.
// Роль в токене является снимком на момент выдачи.
type Subject struct {
	UserID int64
	Email  string
	Role   Role
}

// NewUser данные для создания пользователя. Поля роли здесь нет:
// новый пользователь всегда получает роль по умолчанию.
type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        *string
}

// AuthResult ответ на регистрацию и вход.
type AuthResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}
