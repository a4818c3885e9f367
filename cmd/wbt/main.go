// Command wbt benchmarks a web application firewall with attack and
// legitimate traffic and scores how well it tells them apart.
package main

func main() {
	Execute()
}
