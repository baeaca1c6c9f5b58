package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "config",
		Short: "Manage local proxy configuration",
	}
	root.AddCommand(newConfigCACmd())
	return root
}

func newConfigCACmd() *cobra.Command {
	var (
		caDir          string
		caValidityDays int
		create         bool
		trust          bool
		revoke         bool
	)

	cmd := &cobra.Command{
		Use:   "ca",
		Short: "Create, trust, or revoke the local MITM root certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case revoke:
				return revokeCA(caDir)
			case create:
				return createCA(caDir, caValidityDays)
			case trust:
				return printTrustInstructions(caDir)
			default:
				return cmd.Help()
			}
		},
	}

	cmd.Flags().StringVar(&caDir, "ca-dir", "", "directory holding the CA's cert/key files (default: current directory)")
	cmd.Flags().IntVar(&caValidityDays, "ca-validity-days", 0, "validity period in days for a newly created CA (0 = package default)")
	cmd.Flags().BoolVar(&create, "create", false, "generate a new root CA if one does not already exist")
	cmd.Flags().BoolVar(&trust, "trust", false, "print the root certificate path and this platform's trust-store instructions")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "delete the locally stored root CA cert and key")

	return cmd
}

func createCA(dir string, validityDays int) error {
	ca, err := loadCA(dir, "", "", validityDays)
	if err != nil {
		return err
	}
	fmt.Printf("CA ready: %s\n", ca.GetRootCA().Subject.CommonName)
	return nil
}

func printTrustInstructions(dir string) error {
	ca, err := loadCA(dir, "", "", 0)
	if err != nil {
		return err
	}
	path := caFilePath(dir)
	fmt.Printf("Root certificate: %s\n", path)
	fmt.Printf("Subject CN: %s\n", ca.GetRootCA().Subject.CommonName)

	switch runtime.GOOS {
	case "darwin":
		fmt.Println("Trust it with:")
		fmt.Printf("  sudo security add-trusted-cert -d -r trustRoot -k /Library/Keychains/System.keychain %s\n", path)
	case "linux":
		fmt.Println("Trust it with (Debian/Ubuntu):")
		fmt.Printf("  sudo cp %s /usr/local/share/ca-certificates/proxide.crt && sudo update-ca-certificates\n", path)
	case "windows":
		fmt.Println("Trust it with:")
		fmt.Printf("  certutil -addstore -f Root %s\n", path)
	default:
		fmt.Println("Import it into your platform's trust store manually.")
	}
	return nil
}

func revokeCA(dir string) error {
	path := caFilePath(dir)
	keyPath := path[:len(path)-len(".crt")] + ".key"
	var firstErr error
	for _, p := range []string{path, keyPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}
	fmt.Println("CA revoked (local files removed). Remember to remove it from your system trust store too.")
	return nil
}

func caFilePath(dir string) string {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return dir + string(os.PathSeparator) + "proxide_ca.crt"
}
