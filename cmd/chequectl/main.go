// Command chequectl manages the cheque book from the shell: importing
// spreadsheets and backups, writing exports, and listing cheques.
package main

func main() {
	Execute()
}
