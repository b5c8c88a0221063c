package app

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelshelf/catalog"
	"github.com/s0up4200/reelshelf/forms"
	"github.com/s0up4200/reelshelf/movies"
	"github.com/s0up4200/reelshelf/session"
)

// FormError carries the message shown to the user for a failed action
type FormError struct {
	Op      string
	Field   string
	Message string
	// Next is the route to show instead, if any
	Next string
	Err  error
}

func (e *FormError) Error() string {
	return e.Message
}

func (e *FormError) Unwrap() error {
	return e.Err
}

// Outcome describes a successful action
type Outcome struct {
	Message string
	Next    string
	Movie   *catalog.Movie
	// Imported is set by ImportMovies
	Imported []catalog.Movie
}

// Controller runs each user action: validate, call the catalog, update the
// session, and choose the next route
type Controller struct {
	api     catalog.API
	session *session.Store
	movies  *movies.Service
	logger  zerolog.Logger
}

// NewController creates a controller
func NewController(api catalog.API, sess *session.Store, svc *movies.Service, logger zerolog.Logger) *Controller {
	return &Controller{
		api:     api,
		session: sess,
		movies:  svc,
		logger:  logger.With().Str("component", "app").Logger(),
	}
}

// Session returns the session store
func (c *Controller) Session() *session.Store {
	return c.session
}

// Movies returns the movie service
func (c *Controller) Movies() *movies.Service {
	return c.movies
}

func invalidInput(op string, err error) *FormError {
	fe := &FormError{Op: op, Message: err.Error(), Err: err}
	var vErr *forms.ValidationError
	if errors.As(err, &vErr) {
		fe.Field = vErr.Field
	}
	return fe
}

func (c *Controller) requireSession(op string) error {
	if err := c.session.Require(); err != nil {
		return &FormError{
			Op:      op,
			Message: forms.LoginRequired,
			Next:    RouteLogin,
			Err:     err,
		}
	}
	return nil
}

// loadFailed maps a read failure; an unauthorized response ends the session
func (c *Controller) loadFailed(op string, err error) error {
	fe := &FormError{Op: op, Message: forms.LoadFailure(err), Err: err}
	if apiErr, ok := catalog.AsAPIError(err); ok && apiErr.IsUnauthorized() {
		fe.Next = RouteLogin
	}
	return fe
}

// Login validates credentials, logs in and stores the token
func (c *Controller) Login(ctx context.Context, creds catalog.Credentials) (Outcome, error) {
	if err := forms.ValidateLogin(creds); err != nil {
		return Outcome{}, invalidInput("login", err)
	}

	sess, err := c.api.Login(ctx, creds)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Login failed")
		return Outcome{}, &FormError{Op: "login", Message: forms.LoginFailure(err), Err: err}
	}
	if err := c.session.SetToken(sess.Token); err != nil {
		return Outcome{}, &FormError{Op: "login", Message: "Logged in, but the session could not be saved.", Err: err}
	}

	c.logger.Info().Str("email", creds.Email).Msg("Logged in")
	return Outcome{Next: RouteMovies}, nil
}

// Register creates an account and logs straight in
func (c *Controller) Register(ctx context.Context, reg catalog.Registration) (Outcome, error) {
	if err := forms.ValidateRegistration(reg); err != nil {
		return Outcome{}, invalidInput("register", err)
	}

	if err := c.api.Register(ctx, reg); err != nil {
		c.logger.Debug().Err(err).Msg("Registration failed")
		return Outcome{}, &FormError{Op: "register", Message: forms.RegisterFailure(err), Err: err}
	}

	sess, err := c.api.Login(ctx, catalog.Credentials{Email: reg.Email, Password: reg.Password})
	if err != nil {
		return Outcome{}, &FormError{Op: "register", Message: forms.RegisterFailure(err), Err: err}
	}
	if err := c.session.SetToken(sess.Token); err != nil {
		return Outcome{}, &FormError{Op: "register", Message: "Registered, but the session could not be saved.", Err: err}
	}

	c.logger.Info().Str("email", reg.Email).Msg("Registered")
	return Outcome{Next: RouteMovies}, nil
}

// Logout clears the session and every cached result
func (c *Controller) Logout() (Outcome, error) {
	err := c.session.Clear()
	c.movies.Cache().Clear()
	if err != nil {
		return Outcome{Next: RouteLogin}, &FormError{Op: "logout", Message: "Logged out, but the saved session could not be removed.", Next: RouteLogin, Err: err}
	}
	return Outcome{Next: RouteLogin}, nil
}

// ListMovies returns the movie list for the search parameters
func (c *Controller) ListMovies(ctx context.Context, params catalog.ListParams) (*catalog.MoviesResponse, error) {
	if err := c.requireSession("list"); err != nil {
		return nil, err
	}
	resp, err := c.movies.ListMovies(ctx, params)
	if err != nil {
		return nil, c.loadFailed("list", err)
	}
	return resp, nil
}

// GetMovie returns one movie with its actors
func (c *Controller) GetMovie(ctx context.Context, id int64) (*catalog.Movie, error) {
	if err := c.requireSession("show"); err != nil {
		return nil, err
	}
	movie, err := c.movies.GetMovie(ctx, id)
	if err != nil {
		return nil, c.loadFailed("show", err)
	}
	return movie, nil
}

// CreateMovie validates the form and creates the movie
func (c *Controller) CreateMovie(ctx context.Context, form forms.MovieForm) (Outcome, error) {
	if err := c.requireSession("create"); err != nil {
		return Outcome{}, err
	}
	req, err := forms.ValidateMovie(form)
	if err != nil {
		return Outcome{}, invalidInput("create", err)
	}

	movie, err := c.movies.CreateMovie(ctx, req)
	if err != nil {
		return Outcome{}, &FormError{Op: "create", Message: forms.CreateFailure(err), Err: err}
	}
	return Outcome{Message: forms.MovieCreated, Next: RouteAddMovie, Movie: movie}, nil
}

// UpdateMovie validates the supplied fields and updates the movie
func (c *Controller) UpdateMovie(ctx context.Context, id int64, form forms.MovieUpdateForm) (Outcome, error) {
	if err := c.requireSession("update"); err != nil {
		return Outcome{}, err
	}
	req, err := forms.ValidateMovieUpdate(form)
	if err != nil {
		return Outcome{}, invalidInput("update", err)
	}

	movie, err := c.movies.UpdateMovie(ctx, id, req)
	if err != nil {
		return Outcome{}, &FormError{Op: "update", Message: forms.UpdateFailure(err), Err: err}
	}
	return Outcome{Message: forms.MovieUpdated, Next: RouteMovies, Movie: movie}, nil
}

// DeleteMovie deletes the movie
func (c *Controller) DeleteMovie(ctx context.Context, id int64) (Outcome, error) {
	if err := c.requireSession("delete"); err != nil {
		return Outcome{}, err
	}
	if err := c.movies.DeleteMovie(ctx, id); err != nil {
		return Outcome{}, &FormError{Op: "delete", Message: forms.DeleteFailure(err), Err: err}
	}
	return Outcome{Message: forms.MovieDeleted, Next: RouteMovies}, nil
}

// ImportMovies validates the selected file and uploads it. An empty name
// means no file was selected.
func (c *Controller) ImportMovies(ctx context.Context, name string, size int64, content io.Reader) (Outcome, error) {
	if err := c.requireSession("import"); err != nil {
		return Outcome{}, err
	}
	if err := forms.ValidateImportFile(name, size); err != nil {
		return Outcome{}, invalidInput("import", err)
	}

	resp, err := c.movies.ImportMovies(ctx, name, content)
	if err != nil {
		return Outcome{}, &FormError{Op: "import", Message: forms.ImportFailure(err), Err: err}
	}
	return Outcome{Message: forms.MoviesImported, Next: RouteMovies, Imported: resp.Data}, nil
}
