package postgres

import (
	"database/sql"
	"pledgekit-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.CompanyRepository
	repository.MemberRepository
	repository.InviteRepository
	repository.ProjectRepository
	repository.PledgeOptionRepository
	repository.PledgeRepository
	repository.AccessGrantRepository
	repository.CannyRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		UserRepository:         NewUserRepository(db),
		CompanyRepository:      NewCompanyRepository(db),
		MemberRepository:       NewMemberRepository(db),
		InviteRepository:       NewInviteRepository(db),
		ProjectRepository:      NewProjectRepository(db),
		PledgeOptionRepository: NewPledgeOptionRepository(db),
		PledgeRepository:       NewPledgeRepository(db),
		AccessGrantRepository:  NewAccessGrantRepository(db),
		CannyRepository:        NewCannyRepository(db),
	}
}
