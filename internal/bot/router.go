package bot

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"github.com/copilotbot/copilot/internal/memory"
)

// ApologyResponse is the single best-effort reply sent when event handling
// fails unexpectedly.
const ApologyResponse = "Sorry, I encountered an error processing your message. Please try again."

// mentionPattern matches Discord user mentions (<@id> and <@!id>).
var mentionPattern = regexp.MustCompile(`<@!?\d+>`)

// Router is the top-level per-event pipeline. Each inbound event runs
// filtering, memory load, generation, delivery, and memory persistence in
// order; every failure is contained within the event and can never crash
// the process or leak into other events.
type Router struct {
	gate         *AllowlistGate
	instructions *InstructionsSource
	memory       *memory.Manager
	generator    *Generator
	dispatcher   *Dispatcher
	typing       TypingNotifier // may be nil
}

// NewRouter wires the pipeline together. typing may be nil when the
// platform connector does not support a typing indicator.
func NewRouter(
	gate *AllowlistGate,
	instructions *InstructionsSource,
	mem *memory.Manager,
	generator *Generator,
	dispatcher *Dispatcher,
	typing TypingNotifier,
) *Router {
	return &Router{
		gate:         gate,
		instructions: instructions,
		memory:       mem,
		generator:    generator,
		dispatcher:   dispatcher,
		typing:       typing,
	}
}

// HandleEvent processes one inbound message event to completion. It is safe
// to call concurrently for different events; two near-simultaneous events
// on the same channel can interleave their memory load and persist phases,
// which is an accepted lost-update race (see DESIGN.md).
func (r *Router) HandleEvent(ctx context.Context, event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("router: panic while handling event in channel %s: %v", event.ChannelID, rec)
			r.apologize(ctx, event.ChannelID)
		}
	}()

	// Filtering: never answer bots, closed channels, or ambient chatter.
	if event.AuthorIsBot {
		return
	}
	if !event.IsDirectMessage() && !r.gate.Allowed(ctx, event) {
		log.Printf("router: message ignored, channel %s not in allow-list", event.ChannelID)
		return
	}
	if !event.MentionsBot && !event.IsDirectMessage() {
		return
	}

	if r.typing != nil {
		if err := r.typing.TriggerTyping(ctx, event.ChannelID); err != nil {
			log.Printf("router: typing indicator failed for channel %s: %v", event.ChannelID, err)
		}
	}

	instructions := r.instructions.Active(ctx)

	// Memory load: a failed read degrades to empty state.
	mem, err := r.memory.Read(ctx, event.ChannelID)
	if err != nil {
		log.Printf("router: %v, continuing with empty memory", err)
	}
	conversationContext := r.memory.ContextPrompt(mem)

	userMessage := event.Content
	if event.MentionsBot {
		userMessage = strings.TrimSpace(mentionPattern.ReplaceAllString(userMessage, ""))
	}

	// Generation: a failed backend call is recovered with the fallback,
	// never surfaced to the user.
	response, err := r.generator.Generate(ctx, instructions, conversationContext, userMessage)
	if err != nil {
		log.Printf("router: %v, using fallback response", err)
		response = FallbackResponse
	}

	if err := r.dispatcher.Deliver(ctx, event.ChannelID, response); err != nil {
		log.Printf("router: %v", err)
		if !errors.Is(err, ErrDelivery) {
			r.apologize(ctx, event.ChannelID)
		}
		return
	}

	// Memory persist: best-effort by design. The reply is already out,
	// so a failed write is logged and deliberately discarded.
	if err := r.memory.Exchange(ctx, event.ChannelID, userMessage, response); err != nil {
		log.Printf("router: %v, exchange not recorded", err)
	}
}

// apologize sends the single generic failure reply. Best-effort: if even
// the apology cannot be delivered there is nothing further to do.
func (r *Router) apologize(ctx context.Context, channelID string) {
	if err := r.dispatcher.Deliver(ctx, channelID, ApologyResponse); err != nil {
		log.Printf("router: failed to send apology to channel %s: %v", channelID, err)
	}
}
