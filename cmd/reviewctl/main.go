// Command reviewctl is the operator CLI for the review service.
package main

import "github.com/J-Stott/RegularReviewsBackEnd/cmd/reviewctl/commands"

func main() {
	commands.Execute()
}
