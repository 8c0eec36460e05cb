package ports

import "github.com/agentcore/escrowd/internal/core/domain"

// RepoManager gives access to the repositories of the chosen storage backend.
type RepoManager interface {
	TradeRepository() domain.TradeRepository
	Close()
}
