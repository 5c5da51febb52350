package models

import "time"

// APIToken — WB API токен пользователя. В БД хранится только шифртекст.
type APIToken struct {
	ID             int64
	UserID         int64
	Name           string
	EncryptedToken string
	IsActive       bool
	CreatedAt      time.Time
	LastUsed       *time.Time
}

// Supplier — кабинет поставщика: имя + привязанный токен (мультиаккаунт).
type Supplier struct {
	ID        int64
	UserID    int64
	Name      string
	TokenID   int64
	IsDefault bool
	CreatedAt time.Time
}

// SupplierContext — учётный контекст, под которым выполняются вызовы WB API.
type SupplierContext struct {
	SupplierID   int64
	SupplierName string
	APIToken     string // расшифрованный, живёт только в памяти сессии
}
