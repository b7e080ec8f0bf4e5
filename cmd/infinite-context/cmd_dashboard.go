package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Elizarfish/infinite-context/internal/bootstrap"
	"github.com/Elizarfish/infinite-context/internal/dashboard"
)

var dashboardPort int

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the read/write dashboard over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := bootstrap.Open()
		if err != nil {
			return err
		}
		defer sess.Close()

		addr := fmt.Sprintf(":%d", dashboardPort)
		srv := dashboard.New(sess.Store)
		if logger != nil {
			logger.Sugar().Infof("dashboard listening on %s", addr)
		}
		return http.ListenAndServe(addr, srv)
	},
}

func init() {
	dashboardCmd.Flags().IntVar(&dashboardPort, "port", 8787, "Port to serve the dashboard on")
}
