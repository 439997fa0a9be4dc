package domain

import (
	"encoding/json"
	"time"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	Address   string    `gorm:"type:varchar(42);primaryKey"`
	FullName  string    `gorm:"type:varchar(100);not null"`
	Username  string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Email     string    `gorm:"type:varchar(255);not null"`
	Location  string    `gorm:"type:varchar(100)"`
	Country   string    `gorm:"type:varchar(56);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		Address:   m.Address,
		FullName:  m.FullName,
		Username:  m.Username,
		Email:     m.Email,
		Location:  m.Location,
		Country:   m.Country,
		CreatedAt: m.CreatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		Address:   u.Address,
		FullName:  u.FullName,
		Username:  u.Username,
		Email:     u.Email,
		Location:  u.Location,
		Country:   u.Country,
		CreatedAt: u.CreatedAt,
	}
}

// ProductModel is the GORM model for the products table. Rows are
// append-mostly: only the editable fields and the sold/listed flags
// change in place, and nothing is ever deleted.
type ProductModel struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Seller      string    `gorm:"type:varchar(42);index;not null"`
	Name        string    `gorm:"type:varchar(200);not null"`
	Description string    `gorm:"type:text"`
	Image       string    `gorm:"type:varchar(500)"`
	Category    string    `gorm:"type:varchar(100);index"`
	Location    string    `gorm:"type:varchar(100)"`
	Condition   string    `gorm:"type:varchar(10);not null"`
	ListedAt    time.Time `gorm:"autoCreateTime"`
	Reputation  int64     `gorm:"not null;default:0"`
	Price       int64     `gorm:"not null"`
	Sold        bool      `gorm:"not null;default:false"`
	Listed      bool      `gorm:"not null;default:true"`
}

// TableName specifies the table name for ProductModel.
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts ProductModel to domain Product.
func (m *ProductModel) ToDomain() *Product {
	return &Product{
		ID:          m.ID,
		Seller:      m.Seller,
		Name:        m.Name,
		Description: m.Description,
		Image:       m.Image,
		Category:    m.Category,
		Location:    m.Location,
		Condition:   Condition(m.Condition),
		ListedAt:    m.ListedAt,
		Reputation:  m.Reputation,
		Price:       m.Price,
		Sold:        m.Sold,
		Listed:      m.Listed,
	}
}

// ProductToModel converts domain Product to ProductModel.
func ProductToModel(p *Product) *ProductModel {
	return &ProductModel{
		ID:          p.ID,
		Seller:      p.Seller,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Category:    p.Category,
		Location:    p.Location,
		Condition:   string(p.Condition),
		ListedAt:    p.ListedAt,
		Reputation:  p.Reputation,
		Price:       p.Price,
		Sold:        p.Sold,
		Listed:      p.Listed,
	}
}

// EscrowLockModel is the GORM model for the escrow_locks table. The
// product id is the primary key: at most one lock per product, ever.
type EscrowLockModel struct {
	ProductID  uint64     `gorm:"primaryKey;autoIncrement:false"`
	Buyer      string     `gorm:"type:varchar(42);index;not null"`
	Amount     int64      `gorm:"not null"`
	State      string     `gorm:"type:varchar(10);not null"`
	CreatedAt  time.Time  `gorm:"autoCreateTime"`
	ResolvedAt *time.Time `gorm:""`
}

// TableName specifies the table name for EscrowLockModel.
func (EscrowLockModel) TableName() string {
	return "escrow_locks"
}

// ToDomain converts EscrowLockModel to domain EscrowLock.
func (m *EscrowLockModel) ToDomain() *EscrowLock {
	return &EscrowLock{
		ProductID:  m.ProductID,
		Buyer:      m.Buyer,
		Amount:     m.Amount,
		State:      LockState(m.State),
		CreatedAt:  m.CreatedAt,
		ResolvedAt: m.ResolvedAt,
	}
}

// ReputationModel is the GORM model for the reputation_scores table.
// Score is monotonic: the only write is an in-transaction increment on
// escrow release.
type ReputationModel struct {
	Address string `gorm:"type:varchar(42);primaryKey"`
	Score   int64  `gorm:"not null;default:0"`
}

// TableName specifies the table name for ReputationModel.
func (ReputationModel) TableName() string {
	return "reputation_scores"
}

// BalanceModel is the GORM model for the balances table: funds credited
// to an address by escrow resolutions, withdrawable out of band.
type BalanceModel struct {
	Address string `gorm:"type:varchar(42);primaryKey"`
	Amount  int64  `gorm:"not null;default:0"`
}

// TableName specifies the table name for BalanceModel.
func (BalanceModel) TableName() string {
	return "balances"
}

// LedgerEventModel is the GORM model for the append-only ledger_events
// table.
type LedgerEventModel struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	Type      string    `gorm:"type:varchar(50);index;not null"`
	ProductID *uint64   `gorm:"index"`
	Actor     string    `gorm:"type:varchar(42);index;not null"`
	Payload   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for LedgerEventModel.
func (LedgerEventModel) TableName() string {
	return "ledger_events"
}

// ToDomain converts LedgerEventModel to domain LedgerEvent.
func (m *LedgerEventModel) ToDomain() *LedgerEvent {
	return &LedgerEvent{
		Seq:       m.Seq,
		Type:      m.Type,
		ProductID: m.ProductID,
		Actor:     m.Actor,
		Payload:   json.RawMessage(m.Payload),
		CreatedAt: m.CreatedAt,
	}
}

// LedgerEventToModel converts domain LedgerEvent to LedgerEventModel.
func LedgerEventToModel(e *LedgerEvent) *LedgerEventModel {
	return &LedgerEventModel{
		Seq:       e.Seq,
		Type:      e.Type,
		ProductID: e.ProductID,
		Actor:     e.Actor,
		Payload:   string(e.Payload),
		CreatedAt: e.CreatedAt,
	}
}
