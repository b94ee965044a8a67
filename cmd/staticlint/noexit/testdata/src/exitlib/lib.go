package exitlib

import "os"

func main() {
	os.Exit(1)
}
