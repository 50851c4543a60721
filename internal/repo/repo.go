package repo

import (
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/opsmind/auth/internal/domain"
)

// CodeSource produces OTP codes and their expiry.
type CodeSource interface {
	Generate() (string, error)
	ExpiryAt(now time.Time) time.Time
}

type Digester interface {
	Hash(plain string) (string, error)
}

// GormRepo is the credential store. Every operation is atomic on its own;
// multi-step writes run in a single transaction.
type GormRepo struct {
	DB     *gorm.DB
	Hasher Digester
	Codes  CodeSource
	Now    func() time.Time
}

func New(db *gorm.DB, hasher Digester, codes CodeSource) *GormRepo {
	return &GormRepo{DB: db, Hasher: hasher, Codes: codes, Now: time.Now}
}

func (r *GormRepo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
