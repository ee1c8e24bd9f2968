package main

import "github.com/KaramelBytes/recipetrends/cmd"

func main() {
	cmd.Execute()
}
