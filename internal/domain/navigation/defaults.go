package navigation

// View names of the client screens.
const (
	ViewLogin         = "Login"
	ViewLayout        = "Layout"
	ViewChats         = "Chats"
	ViewContacts      = "Contacts"
	ViewMe            = "Me"
	ViewPersonaCreate = "PersonaCreate"
	ViewChat          = "Chat"
)

var protected = Meta{RequiresAuth: true}

// DefaultRoutes returns the client route set: the tabbed layout at "/" with
// its children, the standalone screens and the catch-all.
func DefaultRoutes() []Route {
	return []Route{
		{Path: LoginPath, View: ViewLogin},
		{
			Path: "/",
			View: ViewLayout,
			Meta: protected,
			Children: []Route{
				{Path: "", Redirect: "/chats", Meta: protected},
				{Path: "chats", View: ViewChats, Meta: protected},
				{Path: "contacts", View: ViewContacts, Meta: protected},
				{Path: "me", View: ViewMe, Meta: protected},
			},
		},
		{Path: "/personas/new", View: ViewPersonaCreate, Meta: protected},
		{Path: "/chat/:id", View: ViewChat, Meta: protected},
		{Path: CatchAll, View: NotFoundView},
	}
}

// DefaultTable builds the table for DefaultRoutes.
func DefaultTable() *Table {
	t, err := NewTable(DefaultRoutes())
	if err != nil {
		panic("navigation: default routes: " + err.Error())
	}
	return t
}
