package chat

import "strings"

// Rule maps keywords to a canned response.
type Rule struct {
	Keywords []string
	Response string
}

// DefaultRules answer the common dashboard questions without calling the
// model. Order matters: the first rule with a matching keyword wins.
var DefaultRules = []Rule{
	{
		Keywords: []string{"add property", "new property", "create property", "add building"},
		Response: "To add a new property:\n\n1. Go to the Properties section from the sidebar\n2. Click on the \"Add New Property\" button\n3. Fill in all required details (type, location, price, etc.)\n4. Upload property images\n5. Click \"Save\" to add the property to your listings\n\nWould you like more specific instructions?",
	},
	{
		Keywords: []string{"edit property", "modify property", "update property", "change property"},
		Response: "To edit an existing property:\n\n1. Navigate to the Properties section\n2. Find the property you want to edit\n3. Click on the property to view details\n4. Click the \"Edit\" button\n5. Make your changes and click \"Save\"\n\nNeed help with a specific property?",
	},
	{
		Keywords: []string{"add client", "new client", "create client", "register client"},
		Response: "To add a new client:\n\n1. Go to the Clients section from the sidebar\n2. Click on \"Add New Client\"\n3. Enter the client information\n4. Click \"Save\" to add the client\n\nIs there a specific type of client you're adding?",
	},
	{
		Keywords: []string{"view properties", "see properties", "browse properties", "all properties", "property list"},
		Response: "To view all properties:\n\n1. Click on \"Properties\" in the sidebar\n2. You'll see a list of all properties, newest first\n3. Click on any property to view detailed information\n\nWould you like to know how to edit one?",
	},
	{
		Keywords: []string{"view clients", "see clients", "browse clients", "all clients", "client list"},
		Response: "To view all clients:\n\n1. Click on \"Clients\" in the sidebar\n2. You'll see a list of all clients, newest first\n3. Click on any client to view detailed information\n\nDo you need help finding a specific client?",
	},
	{
		Keywords: []string{"statistics", "stats", "analytics", "reports", "data"},
		Response: "To access statistics:\n\n1. Click on \"Stats\" in the sidebar\n2. You'll see the key figures shown on the site\n3. Use \"Edit\" on a card to change a figure or its description\n\nIs there a specific statistic you're looking for?",
	},
	{
		Keywords: []string{"team", "team members", "staff", "employees"},
		Response: "To manage team members:\n\n1. Go to the \"Team\" section from the sidebar\n2. View all team members and their positions\n3. Add new team members with the \"Add\" button\n4. Edit a member to change the position or profile image\n\nDo you need to add or modify a team member?",
	},
	{
		Keywords: []string{"office", "location", "address", "office location"},
		Response: "To update office location:\n\n1. Navigate to \"Office Locations\" in the sidebar\n2. View current office details\n3. Click \"Edit\" to update address, phone, or email\n4. Add more office locations if needed\n\nAre you updating an existing location or adding a new one?",
	},
	{
		Keywords: []string{"thank", "thanks", "appreciate", "thank you"},
		Response: "You're welcome! I'm here to help with any other dashboard questions you might have.",
	},
}

// Suggestions are offered before the first message of a conversation.
var Suggestions = []string{
	"How do I add a new property?",
	"How do I edit an existing property?",
	"How do I add a new client?",
	"Where can I view all properties?",
	"Where can I view all clients?",
	"How do I check statistics?",
	"How do I manage team members?",
	"How do I update office location?",
}

// Match returns the response of the first rule with a keyword contained in
// input, compared case-insensitively.
func Match(rules []Rule, input string) (string, bool) {
	lower := strings.ToLower(input)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return r.Response, true
			}
		}
	}
	return "", false
}
