package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/storage"
	"github.com/chatcart/chatcart-backend/internal/utils"
)

// CatalogRenderer renders the product catalog as an interactive list. Flows
// reference it through list nodes with a view_products action.
type CatalogRenderer interface {
	SendCatalog(business *models.Business, session *models.ChatSession) error
}

// FlowService matches and executes tenant-authored flows.
type FlowService struct {
	store     storage.Store
	messenger *Messenger
	catalog   CatalogRenderer
	sendDelay time.Duration
}

// NewFlowService creates a new flow service
func NewFlowService(store storage.Store, messenger *Messenger, catalog CatalogRenderer) *FlowService {
	return &FlowService{
		store:     store,
		messenger: messenger,
		catalog:   catalog,
		sendDelay: 500 * time.Millisecond,
	}
}

// Match finds the first active flow with a trigger keyword equal to, or
// contained in, the normalized text. Substring matching means a short keyword
// like "hi" also fires on "this". Ties between flows resolve to storage order.
func (f *FlowService) Match(businessID uint, text string) (*models.Flow, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil, nil
	}

	flows, err := f.store.GetActiveFlows(businessID)
	if err != nil {
		return nil, err
	}

	for _, flow := range flows {
		for _, keyword := range flow.TriggerKeywords {
			kw := strings.ToLower(strings.TrimSpace(keyword))
			if kw == "" {
				continue
			}
			if normalized == kw || strings.Contains(normalized, kw) {
				return flow, nil
			}
		}
	}
	return nil, nil
}

// Execute runs the flow's nodes in order, best-effort: a node failure is
// logged and execution continues with the next node. A flow with zero
// executable effect returns an error so the caller can fall back to the
// default welcome path.
func (f *FlowService) Execute(business *models.Business, session *models.ChatSession, flow *models.Flow, customerName string) error {
	if len(flow.Nodes) == 0 {
		return fmt.Errorf("flow %q has no nodes", flow.Name)
	}

	vars := map[string]string{
		"{business_name}":  business.Name,
		"{customer_name}":  customerName,
		"{customer_phone}": session.CustomerPhone,
	}

	executed := 0
	for i, node := range flow.Nodes {
		if i > 0 {
			// Rate-limit consecutive sends; no delay after the final node.
			time.Sleep(f.sendDelay)
		}
		if err := f.executeNode(business, session, &node, vars); err != nil {
			log.Printf("⚠️  Flow %q node %d failed: %v", flow.Name, i, err)
			continue
		}
		executed++
	}

	if executed == 0 {
		return fmt.Errorf("flow %q had no effect", flow.Name)
	}

	session.CurrentFlow = flow.Name
	return nil
}

func (f *FlowService) executeNode(business *models.Business, session *models.ChatSession, node *models.FlowNode, vars map[string]string) error {
	switch node.Type {
	case models.NodeTypeMessage:
		if node.Text == "" {
			return fmt.Errorf("message node has no text")
		}
		return f.messenger.Text(business, session.CustomerPhone, renderTemplate(node.Text, vars))

	case models.NodeTypeButtons:
		if len(node.Buttons) == 0 {
			return fmt.Errorf("buttons node has no buttons")
		}
		var buttons []Button
		for i, b := range node.Buttons {
			if i >= MaxButtons {
				break
			}
			buttons = append(buttons, Button{
				ID:    b.ID,
				Title: utils.Truncate(renderTemplate(b.Title, vars), MaxButtonTitleLen),
			})
		}
		return f.messenger.Buttons(business, session.CustomerPhone, renderTemplate(node.Text, vars), buttons)

	case models.NodeTypeList:
		if node.Action == "view_products" {
			return f.catalog.SendCatalog(business, session)
		}
		return fmt.Errorf("unsupported list action %q", node.Action)

	default:
		return fmt.Errorf("unknown node type %q", node.Type)
	}
}

func renderTemplate(text string, vars map[string]string) string {
	for placeholder, value := range vars {
		text = strings.ReplaceAll(text, placeholder, value)
	}
	return text
}

// SetSendDelay overrides the inter-send delay (tests use zero).
func (f *FlowService) SetSendDelay(d time.Duration) {
	f.sendDelay = d
}
