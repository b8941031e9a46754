package conversation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/carrental-bot/internal/booking"
	"github.com/wolfman30/carrental-bot/internal/catalog"
	"github.com/wolfman30/carrental-bot/internal/intent"
	"github.com/wolfman30/carrental-bot/internal/observability/metrics"
	"github.com/wolfman30/carrental-bot/internal/session"
	"github.com/wolfman30/carrental-bot/pkg/logging"
)

var engineTracer = otel.Tracer("carrental.internal.conversation")

const defaultCustomerName = "Customer"

// Engine runs one conversation turn: load session, classify, transition,
// persist. Callers must serialize turns per customer.
type Engine struct {
	store      session.Store
	classifier *intent.Classifier
	catalog    catalog.Catalog
	bookings   *booking.Service
	metrics    *metrics.BotMetrics
	logger     *logging.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

func WithClassifier(c *intent.Classifier) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

func WithMetrics(m *metrics.BotMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(store session.Store, cat catalog.Catalog, bookings *booking.Service, logger *logging.Logger, opts ...EngineOption) *Engine {
	if store == nil || cat == nil || bookings == nil {
		panic("conversation: store, catalog and booking service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		store:      store,
		classifier: intent.NewClassifier(),
		catalog:    cat,
		bookings:   bookings,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// turn carries per-message context through the handlers.
type turn struct {
	sess *session.Session
	in   intent.Intent
	name string
	text string
}

// Handle processes msg and returns the reply. The returned reply's state
// is the state that was persisted.
func (e *Engine) Handle(ctx context.Context, msg InboundMessage) (Reply, error) {
	ctx, span := engineTracer.Start(ctx, "conversation.handle")
	defer span.End()

	sess, err := e.store.GetOrCreate(ctx, msg.From)
	if err != nil {
		span.RecordError(err)
		return Reply{}, fmt.Errorf("conversation: load session: %w", err)
	}
	sess.MessageCount++
	sess.LastMessage = msg.Text

	in := e.classifier.Classify(msg.Text, sess.State)
	if in.Kind == intent.KindButtonClick {
		in, _ = intent.Decode(in.Raw)
	}
	name := msg.Name
	if name == "" {
		name = defaultCustomerName
	}
	span.SetAttributes(
		attribute.String("carrental.intent", string(in.Kind)),
		attribute.String("carrental.state_before", string(sess.State)),
	)

	t := &turn{sess: sess, in: in, name: name, text: msg.Text}
	reply, err := e.dispatch(ctx, t)
	if err != nil {
		span.RecordError(err)
		return Reply{}, err
	}
	reply.State = sess.State

	if err := e.store.Save(ctx, sess); err != nil {
		span.RecordError(err)
		return Reply{}, fmt.Errorf("conversation: save session: %w", err)
	}
	e.metrics.ObserveTransition(string(in.Kind), string(sess.State))
	e.logger.Debug("turn handled",
		"customer", msg.From,
		"intent", in.Kind,
		"state", sess.State,
		"kind", reply.Kind(),
		"count", sess.MessageCount,
	)
	return reply, nil
}

func (e *Engine) dispatch(ctx context.Context, t *turn) (Reply, error) {
	switch t.in.Kind {
	case intent.KindGreeting:
		return e.greet(ctx, t)
	case intent.KindCatalogRequest:
		if t.in.Category != "" {
			return e.showCategory(ctx, t, t.in.Category)
		}
		return e.chooseCategory(ctx, t)
	case intent.KindCarSelection:
		return e.selectCar(ctx, t)
	case intent.KindBookingRequest:
		return e.openBookingForm(ctx, t)
	case intent.KindBookingDetails:
		return e.submitBookingDetails(ctx, t)
	case intent.KindPaymentRequest:
		return e.paymentInstructions(ctx, t)
	case intent.KindPaymentConfirmation:
		return e.confirmPayment(ctx, t)
	case intent.KindPriceInquiry:
		return e.prices(ctx, t)
	case intent.KindLocationInquiry:
		return buttons(locationText, mainMenuButtons()), nil
	case intent.KindHelpRequest:
		t.sess.State = session.StateGettingHelp
		return buttons(helpText, backToMenuButtons()), nil
	case intent.KindBookingCheck:
		return e.bookingHistory(ctx, t)
	default:
		return buttons(fallbackText(t.name), mainMenuButtons()), nil
	}
}

func (e *Engine) greet(ctx context.Context, t *turn) (Reply, error) {
	prices, err := catalog.StartingPrices(ctx, e.catalog)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: starting prices: %w", err)
	}
	t.sess.State = session.StateMainMenu
	return buttons(welcomeText(t.name, prices), mainMenuButtons()), nil
}

func (e *Engine) chooseCategory(ctx context.Context, t *turn) (Reply, error) {
	prices, err := catalog.StartingPrices(ctx, e.catalog)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: starting prices: %w", err)
	}
	t.sess.State = session.StateSelectingCategory
	return Reply{Body: ListBody{
		Text:        categorySelectionText(t.name, prices),
		ButtonLabel: listButtonLabel,
		Sections:    categorySections(),
		Footer:      listFooter,
	}}, nil
}

func (e *Engine) showCategory(ctx context.Context, t *turn, cat catalog.Category) (Reply, error) {
	cars, err := e.catalog.ListByCategory(ctx, cat)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: list %s: %w", cat, err)
	}
	t.sess.State = session.StateBrowsingCars
	t.sess.SelectedCategory = string(cat)

	window := catalog.Window(cars)
	if len(window) == 0 {
		return buttons(emptyCategoryText(cat, t.name), mainMenuButtons()), nil
	}
	reply := buttons(catalogText(cat, t.name, window), carListButtons(window))
	for _, car := range window {
		if car.Image != "" {
			reply.Images = append(reply.Images, Image{
				URL:     car.Image,
				Caption: fmt.Sprintf("%s - TZS %s/day", car.Name, formatAmount(car.PricePerDay)),
			})
		}
	}
	return reply, nil
}

func (e *Engine) selectCar(ctx context.Context, t *turn) (Reply, error) {
	car, err := e.resolveCar(ctx, t)
	if err != nil {
		return Reply{}, err
	}
	if car == nil {
		return buttons(carNotFoundText(t.name), mainMenuButtons()), nil
	}
	t.sess.State = session.StateViewingCar
	t.sess.SelectedCar = car.ID
	reply := buttons(carDetailsText(car), carActionButtons(car.ID))
	if car.Image != "" {
		reply.Images = []Image{{URL: car.Image, Caption: car.Name}}
	}
	return reply, nil
}

// resolveCar returns nil without error when the selection does not name a
// car. Numeric selection only reaches the display window of the
// previously selected category.
func (e *Engine) resolveCar(ctx context.Context, t *turn) (*catalog.Car, error) {
	if t.in.CarID != "" {
		return e.findCar(ctx, t.in.CarID)
	}
	cat := catalog.Category(t.sess.SelectedCategory)
	if t.in.Index < 1 || !cat.Valid() {
		return nil, nil
	}
	cars, err := e.catalog.ListByCategory(ctx, cat)
	if err != nil {
		return nil, fmt.Errorf("conversation: list %s: %w", cat, err)
	}
	window := catalog.Window(cars)
	if t.in.Index > len(window) {
		return nil, nil
	}
	car := window[t.in.Index-1]
	return &car, nil
}

func (e *Engine) findCar(ctx context.Context, id string) (*catalog.Car, error) {
	car, err := e.catalog.FindByID(ctx, id)
	if errors.Is(err, catalog.ErrCarNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: find car %s: %w", id, err)
	}
	return car, nil
}

func (e *Engine) openBookingForm(ctx context.Context, t *turn) (Reply, error) {
	carID := t.in.CarID
	if carID == "" {
		carID = t.sess.SelectedCar
	}
	if carID == "" {
		t.sess.State = session.StateMainMenu
		return buttons(selectCarFirstText(t.name), mainMenuButtons()), nil
	}
	car, err := e.findCar(ctx, carID)
	if err != nil {
		return Reply{}, err
	}
	if car == nil {
		return buttons(carNotFoundText(t.name), mainMenuButtons()), nil
	}
	t.sess.State = session.StateBookingForm
	t.sess.SelectedCar = car.ID
	return buttons(bookingFormText(car, t.name), bookingFormButtons()), nil
}

func (e *Engine) submitBookingDetails(ctx context.Context, t *turn) (Reply, error) {
	if t.sess.SelectedCar == "" {
		t.sess.State = session.StateMainMenu
		return buttons(selectCarFirstText(t.name), mainMenuButtons()), nil
	}
	details := booking.ParseDetails(t.text)
	if !details.Valid {
		t.sess.State = session.StateBookingForm
		return buttons(bookingFormErrorText(details.Errors, t.name), bookingFormButtons()), nil
	}
	bk, err := e.bookings.Create(ctx, t.sess.CustomerID, t.name, t.sess.SelectedCar, details)
	if errors.Is(err, catalog.ErrCarNotFound) {
		return buttons(carNotFoundText(t.name), mainMenuButtons()), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: create booking: %w", err)
	}
	e.metrics.ObserveBookingCreated()
	t.sess.State = session.StatePaymentPending
	t.sess.CurrentBooking = bk.ID
	return buttons(bookingConfirmationText(bk, t.name), paymentButtons(bk.ID)), nil
}

// lookupBooking resolves the booking a payment intent refers to: the id
// carried by a button, else the session's current booking. Bookings of
// other customers are treated as unknown.
func (e *Engine) lookupBooking(ctx context.Context, t *turn) (*booking.Booking, error) {
	id := t.in.BookingID
	if id == "" {
		id = t.sess.CurrentBooking
	}
	if id == "" {
		return nil, nil
	}
	bk, err := e.bookings.Get(ctx, id)
	if errors.Is(err, booking.ErrBookingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: load booking %s: %w", id, err)
	}
	if bk.CustomerID != t.sess.CustomerID {
		return nil, nil
	}
	return bk, nil
}

func (e *Engine) paymentInstructions(ctx context.Context, t *turn) (Reply, error) {
	bk, err := e.lookupBooking(ctx, t)
	if err != nil {
		return Reply{}, err
	}
	if bk == nil {
		return buttons(bookingNotFoundText(t.name), mainMenuButtons()), nil
	}
	t.sess.State = session.StatePaymentInstructions
	return buttons(paymentInstructionsText(bk, t.name), paymentConfirmationButtons(bk.ID)), nil
}

func (e *Engine) confirmPayment(ctx context.Context, t *turn) (Reply, error) {
	bk, err := e.lookupBooking(ctx, t)
	if err != nil {
		return Reply{}, err
	}
	if bk == nil {
		return buttons(bookingNotFoundText(t.name), mainMenuButtons()), nil
	}
	paid, err := e.bookings.MarkPaid(ctx, bk.ID)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: mark paid %s: %w", bk.ID, err)
	}
	t.sess.State = session.StateBookingComplete
	return buttons(paymentSuccessText(paid, t.name), postPaymentButtons()), nil
}

func (e *Engine) prices(ctx context.Context, t *turn) (Reply, error) {
	prices, err := catalog.StartingPrices(ctx, e.catalog)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: starting prices: %w", err)
	}
	// typed price questions answer in place; the menu button moves state
	if t.in.FromButton {
		t.sess.State = session.StateCheckingPrices
	}
	return buttons(pricingText(prices), priceButtons()), nil
}

func (e *Engine) bookingHistory(ctx context.Context, t *turn) (Reply, error) {
	list, err := e.bookings.ListForCustomer(ctx, t.sess.CustomerID)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation: list bookings: %w", err)
	}
	t.sess.State = session.StateViewingBookings
	btns := mainMenuButtons()
	if len(list) > 0 {
		btns = mainMenuOnlyButtons()
	}
	return buttons(bookingHistoryText(list, t.name), btns), nil
}

func buttons(text string, btns []Button) Reply {
	return Reply{Body: ButtonsBody{Text: text, Buttons: btns, Footer: buttonFooter}}
}
