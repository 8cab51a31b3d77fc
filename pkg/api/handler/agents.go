package handler

import (
	"net/http"

	"github.com/lennythecreator/sphinx/pkg/api/response"
	"github.com/lennythecreator/sphinx/pkg/domain"
)

type AdvisorLister interface {
	All() []domain.Advisor
}

type agents struct {
	advisors AdvisorLister
}

func NewAgents(advisors AdvisorLister) *agents {
	return &agents{advisors: advisors}
}

func (a *agents) List(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, a.advisors.All())
}
