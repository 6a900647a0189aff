package domain

import "fmt"

// Action names a workflow operation the dispatcher knows how to run.
type Action string

const (
	ActionShowCatalog    Action = "show_catalog"
	ActionOrderStatus    Action = "order_status"
	ActionCreateOrder    Action = "create_order"
	ActionAddItem        Action = "add_item"
	ActionRemoveItem     Action = "remove_item"
	ActionConfirmOrder   Action = "confirm_order"
	ActionCancelOrder    Action = "cancel_order"
	ActionShowPayment    Action = "show_payment"
	ActionOrderHistory   Action = "order_history"
	ActionAccountInfo    Action = "account_info"
	ActionUpdateAccount  Action = "update_account"
	ActionRegisterClient Action = "register_client"
)

// Decision is the router's single output per turn: either a plain reply
// message or a delegated action, never both, never neither. A decision may
// additionally carry the state transition and context patch to apply once
// the turn is dispatched; the router itself never advances state.
type Decision struct {
	Message string

	Action     Action
	ActionData map[string]string

	// NextState, when non-nil, is the state the session moves to after the
	// decision is applied.
	NextState *State
	// ContextPatch is merged into the session context after the decision is
	// applied. An empty string value deletes the key.
	ContextPatch map[string]string
}

// NewMessage builds a message-form decision.
func NewMessage(text string) *Decision {
	return &Decision{Message: text}
}

// NewAction builds an action-form decision.
func NewAction(action Action, data map[string]string) *Decision {
	return &Decision{Action: action, ActionData: data}
}

// WithState sets the post-turn state transition.
func (d *Decision) WithState(s State) *Decision {
	d.NextState = &s
	return d
}

// WithContext merges kv pairs into the decision's context patch.
func (d *Decision) WithContext(kv map[string]string) *Decision {
	if d.ContextPatch == nil {
		d.ContextPatch = make(map[string]string, len(kv))
	}
	for k, v := range kv {
		d.ContextPatch[k] = v
	}
	return d
}

// Validate enforces the exactly-one-form invariant.
func (d *Decision) Validate() error {
	if d == nil {
		return fmt.Errorf("nil decision")
	}
	hasMsg := d.Message != ""
	hasAction := d.Action != ""
	if hasMsg && hasAction {
		return fmt.Errorf("decision has both message and action %q", d.Action)
	}
	if !hasMsg && !hasAction {
		return fmt.Errorf("decision has neither message nor action")
	}
	return nil
}
